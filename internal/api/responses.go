package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

type stockResponse struct {
	ProductID         string           `json:"productId"`
	Sku               string           `json:"sku"`
	Name              string           `json:"name,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	OnHand            int              `json:"onHand"`
	Reserved          int              `json:"reserved"`
	Available         int              `json:"available"`
	LowStockThreshold int              `json:"lowStockThreshold"`
	InStock           bool             `json:"inStock"`
	LowStock          bool             `json:"lowStock"`
	UpdatedAtUtc      string           `json:"updatedAtUtc"`
}

func newStockResponse(rec domain.StockRecord) stockResponse {
	return stockResponse{
		ProductID:         rec.ProductID,
		Sku:               rec.Sku,
		OnHand:            rec.OnHand,
		Reserved:          rec.Reserved,
		Available:         rec.Available(),
		LowStockThreshold: rec.LowStockThreshold,
		InStock:           rec.Available() > 0,
		LowStock:          rec.IsLowStock(),
		UpdatedAtUtc:      rec.UpdatedAtUtc.UTC().Format(timeFormat),
	}
}

func newProductResponse(info *domain.ProductStockInfo) stockResponse {
	resp := newStockResponse(info.Stock)
	resp.Name = info.Product.Name
	if info.Product.Sku != "" {
		resp.Sku = info.Product.Sku
	}
	if !info.Product.Price.IsZero() {
		price := info.Product.Price
		resp.Price = &price
	}
	return resp
}

type historyEntryResponse struct {
	ID                uuid.UUID  `json:"id"`
	ChangeType        string     `json:"changeType"`
	QuantityChanged   int        `json:"quantityChanged"`
	ResultingOnHand   int        `json:"resultingOnHand"`
	ResultingReserved int        `json:"resultingReserved"`
	Notes             string     `json:"notes,omitempty"`
	ReferenceID       string     `json:"referenceId,omitempty"`
	PerformedBy       *uuid.UUID `json:"performedBy,omitempty"`
	CreatedAtUtc      string     `json:"createdAtUtc"`
}

func newHistoryResponse(entries []domain.InventoryLogEntry) []historyEntryResponse {
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			ID:                e.ID,
			ChangeType:        string(e.ChangeType),
			QuantityChanged:   e.QuantityChanged,
			ResultingOnHand:   e.ResultingOnHand,
			ResultingReserved: e.ResultingReserved,
			Notes:             e.Notes,
			ReferenceID:       e.ReferenceID,
			PerformedBy:       e.PerformedBy,
			CreatedAtUtc:      e.CreatedAtUtc.UTC().Format(timeFormat),
		})
	}
	return out
}

type reservationResponse struct {
	ID            uuid.UUID `json:"id"`
	ProductID     string    `json:"productId"`
	Quantity      int       `json:"quantity"`
	ReferenceID   string    `json:"referenceId"`
	ReferenceType string    `json:"referenceType"`
	Status        string    `json:"status"`
	CreatedAtUtc  string    `json:"createdAtUtc"`
	ClosedAtUtc   *string   `json:"closedAtUtc,omitempty"`
}

func newReservationResponse(r domain.Reservation) reservationResponse {
	resp := reservationResponse{
		ID:            r.ID,
		ProductID:     r.ProductID,
		Quantity:      r.Quantity,
		ReferenceID:   r.ReferenceID,
		ReferenceType: string(r.ReferenceType),
		Status:        string(r.Status),
		CreatedAtUtc:  r.CreatedAtUtc.UTC().Format(timeFormat),
	}
	if r.ClosedAtUtc != nil {
		s := r.ClosedAtUtc.UTC().Format(timeFormat)
		resp.ClosedAtUtc = &s
	}
	return resp
}

type orderResponse struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	Status        string          `json:"status"`
	IsPaid        bool            `json:"isPaid"`
	PaymentStatus string          `json:"paymentStatus"`
	Total         decimal.Decimal `json:"total"`
	UpdatedAtUtc  string          `json:"updatedAtUtc"`
}

func newOrderResponse(o *domain.Order) *orderResponse {
	if o == nil {
		return nil
	}
	return &orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		IsPaid:        o.IsPaid,
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total(),
		UpdatedAtUtc:  o.UpdatedAtUtc.UTC().Format(timeFormat),
	}
}

type paymentResponse struct {
	ID                     uuid.UUID       `json:"id"`
	OrderID                *uuid.UUID      `json:"orderId,omitempty"`
	Status                 string          `json:"status"`
	Amount                 decimal.Decimal `json:"amount"`
	TransactionID          string          `json:"transactionId"`
	Outcome                string          `json:"outcome,omitempty"`
	ReconciliationRequired bool            `json:"reconciliationRequired"`
	OrderError             string          `json:"orderError,omitempty"`
	Order                  *orderResponse  `json:"order,omitempty"`
}

func newPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Status:        string(p.Status),
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
	}
}

func newPaymentResultResponse(res application.PaymentResult) paymentResponse {
	resp := newPaymentResponse(res.Payment)
	resp.Outcome = string(res.Outcome)
	resp.ReconciliationRequired = res.Degraded()
	if res.OrderErr != nil {
		resp.OrderError = res.OrderErr.Error()
	}
	resp.Order = newOrderResponse(res.Order)
	return resp
}

type reconcileResponse struct {
	ProductID      string     `json:"productId"`
	Consistent     bool       `json:"consistent"`
	LogEntries     int        `json:"logEntries"`
	ReplayedOnHand int        `json:"replayedOnHand"`
	RecordedOnHand int        `json:"recordedOnHand"`
	BrokenChainAt  *uuid.UUID `json:"brokenChainAt,omitempty"`
	Reserved       int        `json:"reserved"`
	ActiveReserved int        `json:"activeReserved"`
	CountersValid  bool       `json:"countersValid"`
	CheckedAtUtc   string     `json:"checkedAtUtc"`
}

func newReconcileResponse(r *application.ReconcileReport) reconcileResponse {
	return reconcileResponse{
		ProductID:      r.Replay.ProductID,
		Consistent:     r.Consistent,
		LogEntries:     r.Replay.Entries,
		ReplayedOnHand: r.Replay.ReplayedOnHand,
		RecordedOnHand: r.Replay.RecordedOnHand,
		BrokenChainAt:  r.Replay.BrokenChainAt,
		Reserved:       r.Reserved,
		ActiveReserved: r.ActiveReserved,
		CountersValid:  r.CountersValid,
		CheckedAtUtc:   time.Now().UTC().Format(timeFormat),
	}
}
