package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type stockChangeRequest struct {
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

func (s *Server) handleGetProduct(c *gin.Context) {
	info, err := s.svc.Query.GetProductWithStockInfo(c.Request.Context(), c.Param("productId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductResponse(info))
}

func (s *Server) handleAvailability(c *gin.Context) {
	qty, ok := queryInt(c, "quantity", 1)
	if !ok {
		return
	}
	productID := c.Param("productId")
	inStock, err := s.svc.Query.IsInStock(c.Request.Context(), productID, qty)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"productId": productID,
		"quantity":  qty,
		"inStock":   inStock,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	entries, err := s.svc.Ledger.GetHistory(c.Request.Context(), c.Param("productId"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newHistoryResponse(entries))
}

func (s *Server) handleLowStock(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	records, err := s.svc.Query.GetLowStockProducts(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]stockResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, newStockResponse(rec))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleReconcile(c *gin.Context) {
	report, err := s.svc.Query.Reconcile(c.Request.Context(), c.Param("productId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReconcileResponse(report))
}

func (s *Server) handleRestock(c *gin.Context) {
	var req stockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	productID := c.Param("productId")
	if _, err := s.svc.Ledger.AddStock(c.Request.Context(), productID, req.Quantity, req.Notes, performedBy(c)); err != nil {
		writeError(c, err)
		return
	}
	s.writeStock(c, productID)
}

// handleAdjust sets on-hand to an absolute figure, e.g. after a stock count.
func (s *Server) handleAdjust(c *gin.Context) {
	var req stockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	productID := c.Param("productId")
	if _, err := s.svc.Ledger.AdjustStock(c.Request.Context(), productID, req.Quantity, req.Notes, performedBy(c)); err != nil {
		writeError(c, err)
		return
	}
	s.writeStock(c, productID)
}

func (s *Server) handleDamage(c *gin.Context) {
	var req stockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	productID := c.Param("productId")
	_, err := s.svc.Ledger.RemoveStock(c.Request.Context(), productID, req.Quantity, domain.ChangeDamaged, req.Notes, performedBy(c))
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeStock(c, productID)
}

func (s *Server) writeStock(c *gin.Context, productID string) {
	rec, err := s.svc.Ledger.GetStock(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStockResponse(*rec))
}
