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

type PgStockRepository struct {
	db *sql.DB
}

func NewPgStockRepository(db *sql.DB) *PgStockRepository {
	return &PgStockRepository{db: db}
}

const selectStock = `
        select product_id, sku, on_hand, reserved, low_stock_threshold, version, updated_at_utc
        from inventory_stock
    `

func scanStock(row interface{ Scan(...any) error }) (*domain.StockRecord, error) {
	var rec domain.StockRecord
	if err := row.Scan(
		&rec.ProductID,
		&rec.Sku,
		&rec.OnHand,
		&rec.Reserved,
		&rec.LowStockThreshold,
		&rec.Version,
		&rec.UpdatedAtUtc,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func insertLogEntry(ctx context.Context, q queryer, e *domain.InventoryLogEntry) error {
	query := `
        insert into inventory_log
        (id, product_id, change_type, quantity_changed, resulting_on_hand, resulting_reserved,
         notes, reference_id, performed_by, created_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `
	_, err := q.ExecContext(
		ctx, query,
		e.ID,
		e.ProductID,
		string(e.ChangeType),
		e.QuantityChanged,
		e.ResultingOnHand,
		e.ResultingReserved,
		e.Notes,
		e.ReferenceID,
		nullUUID(e.PerformedBy),
		e.CreatedAtUtc,
	)
	return err
}

func (r *PgStockRepository) Create(
	ctx context.Context,
	rec *domain.StockRecord,
	entry *domain.InventoryLogEntry,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapUnique(err, domain.ErrAlreadyExists)
	}
	defer tx.Rollback()

	q := `
        insert into inventory_stock
        (product_id, sku, on_hand, reserved, low_stock_threshold, version, updated_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7)
    `
	if _, err := tx.ExecContext(
		ctx, q,
		rec.ProductID,
		rec.Sku,
		rec.OnHand,
		rec.Reserved,
		rec.LowStockThreshold,
		rec.Version,
		rec.UpdatedAtUtc,
	); err != nil {
		return mapUnique(err, domain.ErrAlreadyExists)
	}
	if entry != nil {
		if err := insertLogEntry(ctx, tx, entry); err != nil {
			return mapUnique(err, domain.ErrAlreadyExists)
		}
	}
	return mapUnique(tx.Commit(), domain.ErrAlreadyExists)
}

func (r *PgStockRepository) Get(ctx context.Context, productID string) (*domain.StockRecord, error) {
	rec, err := scanStock(r.db.QueryRowContext(ctx, selectStock+" where product_id = $1", productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	return rec, mapErr(err)
}

// Mutate locks the product row with select ... for update, so writers of one
// product queue on the row while other products proceed.
func (r *PgStockRepository) Mutate(
	ctx context.Context,
	productID string,
	fn domain.MutateFunc,
) (*domain.StockRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback()

	rec, err := scanStock(tx.QueryRowContext(ctx, selectStock+" where product_id = $1 for update", productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	if err != nil {
		return nil, mapErr(err)
	}

	entry, err := fn(rec)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return rec, nil
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	q := `
        update inventory_stock
        set on_hand = $2,
            reserved = $3,
            version = $4,
            updated_at_utc = $5
        where product_id = $1
    `
	if _, err := tx.ExecContext(ctx, q, rec.ProductID, rec.OnHand, rec.Reserved, rec.Version, rec.UpdatedAtUtc); err != nil {
		return nil, mapErr(err)
	}
	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return nil, mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, mapErr(err)
	}
	return rec, nil
}

const selectLog = `
        select id, product_id, change_type, quantity_changed, resulting_on_hand, resulting_reserved,
               notes, reference_id, performed_by, created_at_utc
        from inventory_log
        where product_id = $1
    `

func (r *PgStockRepository) History(ctx context.Context, productID string, limit int) ([]domain.InventoryLogEntry, error) {
	return r.queryLog(ctx, selectLog+" order by seq desc limit $2", productID, limit)
}

func (r *PgStockRepository) Replay(ctx context.Context, productID string) ([]domain.InventoryLogEntry, error) {
	return r.queryLog(ctx, selectLog+" order by seq asc", productID)
}

func (r *PgStockRepository) queryLog(ctx context.Context, query string, args ...any) ([]domain.InventoryLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	result := []domain.InventoryLogEntry{}
	for rows.Next() {
		var e domain.InventoryLogEntry
		var change string
		var performedBy uuid.NullUUID
		if err := rows.Scan(
			&e.ID,
			&e.ProductID,
			&change,
			&e.QuantityChanged,
			&e.ResultingOnHand,
			&e.ResultingReserved,
			&e.Notes,
			&e.ReferenceID,
			&performedBy,
			&e.CreatedAtUtc,
		); err != nil {
			return nil, err
		}
		e.ChangeType = domain.ChangeType(change)
		if performedBy.Valid {
			id := performedBy.UUID
			e.PerformedBy = &id
		}
		result = append(result, e)
	}
	return result, mapErr(rows.Err())
}

func (r *PgStockRepository) ListLowStock(ctx context.Context, limit int) ([]domain.StockRecord, error) {
	q := selectStock + `
        where on_hand <= low_stock_threshold
        order by on_hand - reserved asc, product_id asc
        limit $1
    `
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	result := []domain.StockRecord{}
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, mapErr(rows.Err())
}

// Reservations

type PgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) *PgReservationRepository {
	return &PgReservationRepository{db: db}
}

const selectReservation = `
        select id, product_id, quantity, reference_id, reference_type, status, created_at_utc, closed_at_utc
        from inventory_reservations
    `

func scanReservation(row interface{ Scan(...any) error }) (*domain.Reservation, error) {
	var res domain.Reservation
	var refType, status string
	var closedAt sql.NullTime
	if err := row.Scan(
		&res.ID,
		&res.ProductID,
		&res.Quantity,
		&res.ReferenceID,
		&refType,
		&status,
		&res.CreatedAtUtc,
		&closedAt,
	); err != nil {
		return nil, err
	}
	res.ReferenceType = domain.ReferenceType(refType)
	res.Status = domain.ReservationStatus(status)
	if closedAt.Valid {
		t := closedAt.Time
		res.ClosedAtUtc = &t
	}
	return &res, nil
}

func (r *PgReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	result := []domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}
	return result, mapErr(rows.Err())
}

func (r *PgReservationRepository) FindActive(ctx context.Context, key domain.ReferenceKey) (*domain.Reservation, error) {
	q := selectReservation + `
        where product_id = $1 and reference_id = $2 and reference_type = $3 and status = 'ACTIVE'
    `
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, key.ProductID, key.ReferenceID, string(key.ReferenceType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, mapErr(err)
}

// Insert relies on ux_inventory_reservations_active to reject a second active
// row for the same key.
func (r *PgReservationRepository) Insert(ctx context.Context, res *domain.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	q := `
        insert into inventory_reservations
        (id, product_id, quantity, reference_id, reference_type, status, created_at_utc, closed_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
    `
	_, err := r.db.ExecContext(
		ctx, q,
		res.ID,
		res.ProductID,
		res.Quantity,
		res.ReferenceID,
		string(res.ReferenceType),
		string(res.Status),
		res.CreatedAtUtc,
		res.ClosedAtUtc,
	)
	return mapUnique(err, domain.ErrDuplicateReservation)
}

func (r *PgReservationRepository) Close(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) (bool, error) {
	if status != domain.ReservationConfirmed && status != domain.ReservationReleased {
		return false, fmt.Errorf("%w: cannot close reservation as %s", domain.ErrInvalidOperation, status)
	}
	q := `
        update inventory_reservations
        set status = $2,
            closed_at_utc = $3
        where id = $1 and status = 'ACTIVE'
    `
	result, err := r.db.ExecContext(ctx, q, id, string(status), time.Now().UTC())
	if err != nil {
		return false, mapErr(err)
	}
	n, err := result.RowsAffected()
	return n == 1, err
}

func (r *PgReservationRepository) Reopen(ctx context.Context, id uuid.UUID) error {
	q := `
        update inventory_reservations
        set status = 'ACTIVE',
            closed_at_utc = null
        where id = $1
    `
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return mapUnique(err, domain.ErrDuplicateReservation)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: reservation %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *PgReservationRepository) ListByReference(
	ctx context.Context,
	referenceID string,
	referenceType domain.ReferenceType,
) ([]domain.Reservation, error) {
	q := selectReservation + `
        where reference_id = $1 and reference_type = $2
        order by created_at_utc asc, product_id asc
    `
	return r.queryReservations(ctx, q, referenceID, string(referenceType))
}

func (r *PgReservationRepository) ListActiveOlderThan(
	ctx context.Context,
	referenceType domain.ReferenceType,
	before time.Time,
	limit int,
) ([]domain.Reservation, error) {
	q := selectReservation + `
        where reference_type = $1 and status = 'ACTIVE' and created_at_utc < $2
        order by created_at_utc asc, product_id asc
        limit $3
    `
	return r.queryReservations(ctx, q, string(referenceType), before, limit)
}

func (r *PgReservationRepository) SumActive(ctx context.Context, productID string) (int, error) {
	q := `
        select coalesce(sum(quantity), 0)
        from inventory_reservations
        where product_id = $1 and status = 'ACTIVE'
    `
	var sum int
	err := r.db.QueryRowContext(ctx, q, productID).Scan(&sum)
	return sum, mapErr(err)
}
