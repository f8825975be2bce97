package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type reservationRequest struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	ReferenceID   string `json:"referenceId"`
	ReferenceType string `json:"referenceType"`
}

type placeOrderLine struct {
	ProductID      string          `json:"productId"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

type placeOrderRequest struct {
	OrderID uuid.UUID        `json:"orderId"`
	UserID  uuid.UUID        `json:"userId"`
	CartID  string           `json:"cartId"`
	Items   []placeOrderLine `json:"items"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type recordPaymentRequest struct {
	PaymentID     uuid.UUID       `json:"paymentId"`
	OrderID       *uuid.UUID      `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func bindReservation(c *gin.Context) (reservationRequest, bool) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return req, false
	}
	return req, true
}

func (s *Server) handleReserve(c *gin.Context) {
	req, ok := bindReservation(c)
	if !ok {
		return
	}
	reserved, err := s.svc.Reservations.ReserveForReference(c.Request.Context(),
		req.ProductID, req.Quantity, req.ReferenceID, domain.ReferenceType(req.ReferenceType))
	if err != nil {
		writeError(c, err)
		return
	}
	if !reserved {
		writeInsufficientStock(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserved": true})
}

func (s *Server) handleRelease(c *gin.Context) {
	req, ok := bindReservation(c)
	if !ok {
		return
	}
	released, err := s.svc.Reservations.ReleaseForReference(c.Request.Context(),
		req.ProductID, req.Quantity, req.ReferenceID, domain.ReferenceType(req.ReferenceType))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": released})
}

func (s *Server) handleConfirm(c *gin.Context) {
	req, ok := bindReservation(c)
	if !ok {
		return
	}
	confirmed, err := s.svc.Reservations.ConfirmForReference(c.Request.Context(),
		req.ProductID, req.Quantity, req.ReferenceID, domain.ReferenceType(req.ReferenceType))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": confirmed})
}

func (s *Server) handleListReservations(c *gin.Context) {
	list, err := s.svc.Reservations.ListForReference(c.Request.Context(),
		c.Param("referenceId"), domain.ReferenceType(c.Param("referenceType")))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]reservationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, newReservationResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, l := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountAmount: l.DiscountAmount,
		})
	}
	res, err := s.svc.Placement.PlaceOrder(c.Request.Context(), application.PlaceOrderCommand{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		CartID:  req.CartID,
		Items:   items,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if !res.Accepted {
		c.JSON(http.StatusConflict, errorResponse{Error: res.Reason})
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(res.Order))
}

func (s *Server) handleTransition(c *gin.Context) {
	orderID, ok := pathUUID(c, "orderId")
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	target, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	order, err := s.svc.Orders.TransitionByID(c.Request.Context(), orderID, target)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (s *Server) handleRecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if req.PaymentID == uuid.Nil {
		badRequest(c, "paymentId is required")
		return
	}
	p, err := s.svc.Payments.RecordPayment(c.Request.Context(), req.PaymentID, req.OrderID, req.Amount, req.TransactionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPaymentResponse(p))
}

func (s *Server) handleCompletePayment(c *gin.Context) {
	id, ok := pathUUID(c, "paymentId")
	if !ok {
		return
	}
	res, err := s.svc.Payments.MarkPaymentCompleted(c.Request.Context(), id)
	writePaymentResult(c, res, err)
}

func (s *Server) handleFailPayment(c *gin.Context) {
	id, ok := pathUUID(c, "paymentId")
	if !ok {
		return
	}
	res, err := s.svc.Payments.MarkPaymentFailed(c.Request.Context(), id)
	writePaymentResult(c, res, err)
}

func (s *Server) handleRefundPayment(c *gin.Context) {
	id, ok := pathUUID(c, "paymentId")
	if !ok {
		return
	}
	var req refundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
	}
	res, err := s.svc.Payments.RefundPayment(c.Request.Context(), id, req.Amount, req.Reason)
	writePaymentResult(c, res, err)
}

// writePaymentResult answers 202 when the payment committed but its order
// still needs reconciliation.
func writePaymentResult(c *gin.Context, res application.PaymentResult, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if res.Degraded() {
		status = http.StatusAccepted
	}
	c.JSON(status, newPaymentResultResponse(res))
}
