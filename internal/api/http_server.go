package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// Services are the application entry points the HTTP layer calls.
type Services struct {
	Ledger       *application.StockLedger
	Reservations *application.ReservationService
	Query        *application.InventoryQuery
	Orders       *application.OrderStateMachine
	Placement    *application.OrderPlacement
	Payments     *application.PaymentCoordinator
}

type Server struct {
	cfg config.Config
	svc Services
}

func NewServer(cfg config.Config, svc Services) *Server {
	return &Server{cfg: cfg, svc: svc}
}

// Router builds the gin engine with tracing and every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.cfg.ServiceName))
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", s.handleHealth)
	r.GET("/swagger.json", s.handleSwaggerJson)

	inv := r.Group("/api/inventory")
	inv.GET("/low-stock", s.handleLowStock)
	inv.GET("/:productId", s.handleGetProduct)
	inv.GET("/:productId/availability", s.handleAvailability)
	inv.GET("/:productId/history", s.handleHistory)
	inv.GET("/:productId/reconcile", s.handleReconcile)
	inv.POST("/:productId/restock", s.handleRestock)
	inv.POST("/:productId/adjust", s.handleAdjust)
	inv.POST("/:productId/damage", s.handleDamage)

	res := r.Group("/api/reservations")
	res.POST("", s.handleReserve)
	res.POST("/release", s.handleRelease)
	res.POST("/confirm", s.handleConfirm)
	res.GET("/:referenceType/:referenceId", s.handleListReservations)

	orders := r.Group("/api/orders")
	orders.POST("", s.handlePlaceOrder)
	orders.POST("/:orderId/transitions", s.handleTransition)

	payments := r.Group("/api/payments")
	payments.POST("", s.handleRecordPayment)
	payments.POST("/:paymentId/complete", s.handleCompletePayment)
	payments.POST("/:paymentId/fail", s.handleFailPayment)
	payments.POST("/:paymentId/refund", s.handleRefundPayment)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleSwaggerJson(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(openAPISpec))
}

// statusFor maps domain errors onto HTTP codes. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidOperation),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPartialRefundUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("API: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, errorResponse{Error: "internal error"})
		return
	}
	if status == http.StatusUnprocessableEntity {
		log.Printf("API: %s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, errorResponse{Error: err.Error(), Retryable: application.IsRetryable(err)})
}

func writeInsufficientStock(c *gin.Context) {
	c.JSON(http.StatusConflict, errorResponse{Error: domain.InsufficientStockMessage})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		badRequest(c, key+" must be an integer")
		return 0, false
	}
	return n, true
}

func pathUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		badRequest(c, key+" is invalid")
		return uuid.Nil, false
	}
	return id, true
}

// performedBy reads the optional X-User-Id header.
func performedBy(c *gin.Context) *uuid.UUID {
	v := c.GetHeader("X-User-Id")
	if v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil
	}
	return &id
}
