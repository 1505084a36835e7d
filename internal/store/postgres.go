package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

const itemColumns = `id, make, model, part_number, serial_number, bin_location, category, notes,
	quantity, photo_url, code_type, code_value, purchase_price, repair_cost, sale_price,
	sold, request_status, requested_by, created_at`

// Postgres stores items in the items table. Single-row operations go through
// database/sql; bulk inserts use the pgx pool when one is configured.
type Postgres struct {
	DB   *sql.DB
	Pool *pgxpool.Pool
}

// NewPostgres creates the store. pool may be nil.
func NewPostgres(db *sql.DB, pool *pgxpool.Pool) *Postgres {
	return &Postgres{DB: db, Pool: pool}
}

// Ping checks the database is reachable
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return apperr.Unavailable("pinging database", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var it models.Item
	var bin, status, requestedBy sql.NullString
	var sold sql.NullBool
	err := row.Scan(
		&it.ID, &it.Make, &it.Model, &it.PartNumber, &it.SerialNumber, &bin, &it.Category, &it.Notes,
		&it.Quantity, &it.PhotoURL, (*string)(&it.CodeType), &it.CodeValue,
		&it.PurchasePrice, &it.RepairCost, &it.SalePrice,
		&sold, &status, &requestedBy, &it.CreatedAt,
	)
	if err != nil {
		return it, err
	}
	it.BinLocation = bin.String
	it.Sold = sold.Valid && sold.Bool
	it.RequestStatus = models.RequestStatus(status.String)
	it.RequestedBy = requestedBy.String
	it.CreatedAt = it.CreatedAt.UTC()
	return it, nil
}

func insertArgs(it models.Item) []any {
	return []any{
		it.ID, it.Make, it.Model, it.PartNumber, it.SerialNumber, it.BinLocation, it.Category, it.Notes,
		it.Quantity, it.PhotoURL, string(it.CodeType), it.CodeValue,
		it.PurchasePrice, it.RepairCost, it.SalePrice,
		it.Sold, models.SetRequestStatus(it.RequestStatus).SQLValue(),
		models.SetRequestedBy(it.RequestedBy).SQLValue(), it.CreatedAt,
	}
}

const insertSQL = `INSERT INTO items (` + itemColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

// mapErr turns driver errors into domain kinds. Anything unrecognised is an outage.
func mapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.DuplicateKey("%s: %s", op, pgErr.Detail)
		case pgCheckViolation:
			return apperr.Validation(pgErr.ColumnName, "%s: violates %s", op, pgErr.ConstraintName)
		}
	}
	return apperr.Unavailable(op, err)
}

func (p *Postgres) Insert(ctx context.Context, item models.Item) error {
	if _, err := p.DB.ExecContext(ctx, insertSQL, insertArgs(item)...); err != nil {
		return mapErr("inserting item "+item.ID, err)
	}
	return nil
}

// InsertMany inserts items in one transaction, all or none.
func (p *Postgres) InsertMany(ctx context.Context, items []models.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if p.Pool == nil {
		return p.insertManySQL(ctx, items)
	}

	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return 0, mapErr("starting import transaction", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(insertSQL, insertArgs(it)...)
	}
	br := tx.SendBatch(ctx, batch)
	for _, it := range items {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, mapErr("inserting item "+it.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, mapErr("closing import batch", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, mapErr("committing import", err)
	}
	return len(items), nil
}

func (p *Postgres) insertManySQL(ctx context.Context, items []models.Item) (int, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, mapErr("starting import transaction", err)
	}
	defer tx.Rollback()
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, insertSQL, insertArgs(it)...); err != nil {
			return 0, mapErr("inserting item "+it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, mapErr("committing import", err)
	}
	return len(items), nil
}

func (p *Postgres) Get(ctx context.Context, id string) (models.Item, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, apperr.NotFound("item %s not found", id)
	}
	if err != nil {
		return models.Item{}, mapErr("loading item "+id, err)
	}
	return it, nil
}

// buildUpdate renders patch as "UPDATE items SET col = $1, ... WHERE id = $n".
func buildUpdate(id string, patch models.Patch) (string, []any) {
	type set struct {
		sql string
		val any
	}
	sets := make([]set, 0, len(patch))
	for _, c := range patch {
		sets = append(sets, set{string(c.Field) + " = $%d", c.SQLValue()})
	}

	args := make([]any, 0, len(sets)+3)
	var b strings.Builder
	b.WriteString("UPDATE items SET ")
	for i, s := range sets {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, s.sql, i+1)
		args = append(args, s.val)
	}
	args = append(args, id)
	fmt.Fprintf(&b, " WHERE id = $%d", len(args))
	return b.String(), args
}

func (p *Postgres) Update(ctx context.Context, id string, patch models.Patch) error {
	if len(patch) == 0 {
		return p.exists(ctx, id)
	}
	query, args := buildUpdate(id, patch)
	res, err := p.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr("updating item "+id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("item %s not found", id)
	}
	return nil
}

func (p *Postgres) UpdateIf(ctx context.Context, id string, expect models.Lifecycle, patch models.Patch) error {
	if len(patch) == 0 {
		return p.exists(ctx, id)
	}
	query, args := buildUpdate(id, patch)
	args = append(args, expect.Sold, models.SetRequestStatus(expect.RequestStatus).SQLValue())
	query += fmt.Sprintf(" AND COALESCE(sold, false) = $%d AND request_status IS NOT DISTINCT FROM $%d", len(args)-1, len(args))

	res, err := p.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr("updating item "+id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := p.exists(ctx, id); err != nil {
			return err
		}
		return apperr.Stale(id)
	}
	return nil
}

func (p *Postgres) exists(ctx context.Context, id string) error {
	var one int
	err := p.DB.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("item %s not found", id)
	}
	if err != nil {
		return mapErr("loading item "+id, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapErr("deleting item "+id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("item %s not found", id)
	}
	return nil
}

func (p *Postgres) Scan(ctx context.Context) ([]models.Item, error) {
	return p.query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at DESC, id ASC`)
}

func (p *Postgres) ScanActive(ctx context.Context) ([]models.Item, error) {
	return p.query(ctx, `SELECT `+itemColumns+` FROM items WHERE COALESCE(sold, false) = false ORDER BY created_at DESC, id ASC`)
}

func (p *Postgres) query(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr("scanning items", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, mapErr("reading item row", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("scanning items", err)
	}
	return items, nil
}
