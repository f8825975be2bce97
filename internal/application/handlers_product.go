package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// ProductCreatedHandler registers the stock record of a new catalog product
// and keeps the catalog view used by availability queries.
type ProductCreatedHandler struct {
	ledger  *StockLedger
	catalog domain.ProductCatalog
	timeout time.Duration
}

func NewProductCreatedHandler(
	ledger *StockLedger,
	catalog domain.ProductCatalog,
	timeout time.Duration,
) *ProductCreatedHandler {
	return &ProductCreatedHandler{
		ledger:  ledger,
		catalog: catalog,
		timeout: timeout,
	}
}

func (h *ProductCreatedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.ProductCreatedPayload
	if _, ok := decodeEnvelope("ProductCreatedHandler", ev, &payload, "ProductCreated"); !ok {
		return nil
	}
	if payload.ProductID == uuid.Nil {
		log.Printf("ProductCreatedHandler: missing productId")
		return nil
	}

	productID := payload.ProductID.String()
	log.Printf("ProductCreatedHandler: received ProductCreated productId=%s sku=%s qty=%d",
		productID, payload.Sku, payload.StockQuantity)

	catalogCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.catalog.Upsert(catalogCtx, &domain.Product{
		ID:       productID,
		Sku:      payload.Sku,
		Name:     payload.Name,
		Price:    payload.Price,
		IsActive: payload.IsActive,
	})
	cancel()
	if err != nil {
		return translateErr(err)
	}

	_, err = h.ledger.RegisterProduct(ctx, ProductRegistration{
		ProductID:         productID,
		Sku:               payload.Sku,
		InitialQuantity:   payload.StockQuantity,
		LowStockThreshold: payload.LowStockThreshold,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Redelivery. Stock of a known product only changes through the ledger.
		log.Printf("ProductCreatedHandler: productId=%s already registered", productID)
		return nil
	}
	return dropInvalid("ProductCreatedHandler", err)
}
