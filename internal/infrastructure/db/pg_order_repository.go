package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type PgOrderRepository struct {
	db *sql.DB
}

func NewPgOrderRepository(db *sql.DB) *PgOrderRepository {
	return &PgOrderRepository{db: db}
}

func (r *PgOrderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	q := `
        select id, user_id, cart_id, status, is_paid, payment_status, created_at_utc, updated_at_utc
        from orders
        where id = $1
    `
	var o domain.Order
	var status, paymentStatus string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID,
		&o.UserID,
		&o.CartID,
		&status,
		&o.IsPaid,
		&paymentStatus,
		&o.CreatedAtUtc,
		&o.UpdatedAtUtc,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)

	iq := `
        select product_id, quantity, unit_price, discount_amount
        from order_items
        where order_id = $1
        order by line_no asc
    `
	rows, err := r.db.QueryContext(ctx, iq, id)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice, &it.DiscountAmount); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, mapErr(rows.Err())
}

func (r *PgOrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback()

	q := `
        insert into orders
        (id, user_id, cart_id, status, is_paid, payment_status, created_at_utc, updated_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
    `
	if _, err := tx.ExecContext(
		ctx, q,
		o.ID,
		o.UserID,
		o.CartID,
		string(o.Status),
		o.IsPaid,
		string(o.PaymentStatus),
		o.CreatedAtUtc,
		o.UpdatedAtUtc,
	); err != nil {
		return mapUnique(err, domain.ErrAlreadyExists)
	}

	iq := `
        insert into order_items
        (order_id, line_no, product_id, quantity, unit_price, discount_amount)
        values ($1,$2,$3,$4,$5,$6)
    `
	for i, it := range o.Items {
		if _, err := tx.ExecContext(ctx, iq, o.ID, i+1, it.ProductID, it.Quantity, it.UnitPrice, it.DiscountAmount); err != nil {
			return mapErr(err)
		}
	}
	return mapUnique(tx.Commit(), domain.ErrAlreadyExists)
}

// Update is a compare-and-set on status: it writes nothing unless the stored
// order is still in from.
func (r *PgOrderRepository) Update(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	q := `
        update orders
        set status = $2,
            is_paid = $3,
            payment_status = $4,
            updated_at_utc = $5
        where id = $1 and status = $6
    `
	result, err := r.db.ExecContext(
		ctx, q,
		o.ID,
		string(o.Status),
		o.IsPaid,
		string(o.PaymentStatus),
		time.Now().UTC(),
		string(from),
	)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, o.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: order %s is no longer %s", domain.ErrConcurrentModification, o.ID, from)
	}
	return nil
}

// Payments

type PgPaymentRepository struct {
	db *sql.DB
}

func NewPgPaymentRepository(db *sql.DB) *PgPaymentRepository {
	return &PgPaymentRepository{db: db}
}

func (r *PgPaymentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	q := `
        select id, order_id, status, amount, transaction_id, refund_reason, created_at_utc, updated_at_utc
        from payments
        where id = $1
    `
	var p domain.Payment
	var orderID uuid.NullUUID
	var status string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID,
		&orderID,
		&status,
		&p.Amount,
		&p.TransactionID,
		&p.RefundReason,
		&p.CreatedAtUtc,
		&p.UpdatedAtUtc,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	p.Status = domain.PaymentStatus(status)
	if orderID.Valid {
		oid := orderID.UUID
		p.OrderID = &oid
	}
	return &p, nil
}

func (r *PgPaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	q := `
        insert into payments
        (id, order_id, status, amount, transaction_id, refund_reason, created_at_utc, updated_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
    `
	_, err := r.db.ExecContext(
		ctx, q,
		p.ID,
		nullUUID(p.OrderID),
		string(p.Status),
		p.Amount,
		p.TransactionID,
		p.RefundReason,
		p.CreatedAtUtc,
		p.UpdatedAtUtc,
	)
	return mapUnique(err, domain.ErrAlreadyExists)
}

func (r *PgPaymentRepository) Update(ctx context.Context, p *domain.Payment, from domain.PaymentStatus) error {
	q := `
        update payments
        set status = $2,
            refund_reason = $3,
            updated_at_utc = $4
        where id = $1 and status = $5
    `
	result, err := r.db.ExecContext(ctx, q, p.ID, string(p.Status), p.RefundReason, p.UpdatedAtUtc, string(from))
	if err != nil {
		return mapErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, p.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: payment %s is no longer %s", domain.ErrConcurrentModification, p.ID, from)
	}
	return nil
}

// Catalog

type PgProductCatalog struct {
	db *sql.DB
}

func NewPgProductCatalog(db *sql.DB) *PgProductCatalog {
	return &PgProductCatalog{db: db}
}

func (r *PgProductCatalog) Get(ctx context.Context, productID string) (*domain.Product, error) {
	q := `
        select product_id, sku, name, price, is_active, updated_at_utc
        from catalog_products
        where product_id = $1
    `
	var p domain.Product
	err := r.db.QueryRowContext(ctx, q, productID).Scan(&p.ID, &p.Sku, &p.Name, &p.Price, &p.IsActive, &p.UpdatedAtUtc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PgProductCatalog) Upsert(ctx context.Context, p *domain.Product) error {
	if p.UpdatedAtUtc.IsZero() {
		p.UpdatedAtUtc = time.Now().UTC()
	}
	q := `
        insert into catalog_products (product_id, sku, name, price, is_active, updated_at_utc)
        values ($1,$2,$3,$4,$5,$6)
        on conflict (product_id) do update
        set sku = excluded.sku,
            name = excluded.name,
            price = excluded.price,
            is_active = excluded.is_active,
            updated_at_utc = excluded.updated_at_utc
    `
	_, err := r.db.ExecContext(ctx, q, p.ID, p.Sku, p.Name, p.Price, p.IsActive, p.UpdatedAtUtc)
	return mapErr(err)
}
