package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maltedev/price-tracker/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracked_items (
	id            TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	site          TEXT NOT NULL,
	target_price  DOUBLE PRECISION NOT NULL,
	tag           TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	current_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	in_stock      BOOLEAN,
	coupon        JSONB,
	final_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_updated  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists tracked items in Postgres for deployments that
// already run one. Row updates are transactional, which covers the
// atomicity the JSON store gets from rename.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.TrackedItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, site, target_price, tag, title, current_price,
		       in_stock, coupon, final_price, last_updated, created_at
		FROM tracked_items
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.TrackedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.TrackedItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, url, site, target_price, tag, title, current_price,
		       in_stock, coupon, final_price, last_updated, created_at
		FROM tracked_items
		WHERE id = $1
	`, id)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

func (s *PostgresStore) Create(ctx context.Context, item *models.TrackedItem) error {
	coupon, err := marshalCoupon(item.Coupon)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tracked_items
		(id, url, site, target_price, tag, title, current_price,
		 in_stock, coupon, final_price, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, item.ID, item.URL, string(item.Site), item.TargetPrice, item.Tag,
		item.Title, item.Price, item.InStock, coupon, item.FinalPrice,
		item.LastUpdated, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// UpdateObserved applies the update inside a transaction using the same
// fold logic as the JSON store, so nil fields never erase known values.
func (s *PostgresStore) UpdateObserved(ctx context.Context, id string, update models.ObservedUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, url, site, target_price, tag, title, current_price,
		       in_stock, coupon, final_price, last_updated, created_at
		FROM tracked_items
		WHERE id = $1
		FOR UPDATE
	`, id)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	update.Apply(item)

	coupon, err := marshalCoupon(item.Coupon)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE tracked_items
		SET title = $2, current_price = $3, in_stock = $4, coupon = $5,
		    final_price = $6, last_updated = $7
		WHERE id = $1
	`, id, item.Title, item.Price, item.InStock, coupon, item.FinalPrice, item.LastUpdated); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetTargetPrice(ctx context.Context, id string, target float64) error {
	if target <= 0 {
		return fmt.Errorf("target price must be positive")
	}

	tag, err := s.pool.Exec(ctx, `UPDATE tracked_items SET target_price = $2 WHERE id = $1`, id, target)
	if err != nil {
		return fmt.Errorf("failed to set target price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Reload is a no-op: every read already hits the database.
func (s *PostgresStore) Reload(ctx context.Context) error { return nil }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanItem(row pgx.Row) (*models.TrackedItem, error) {
	var item models.TrackedItem
	var site string
	var coupon []byte

	err := row.Scan(&item.ID, &item.URL, &site, &item.TargetPrice, &item.Tag,
		&item.Title, &item.Price, &item.InStock, &coupon, &item.FinalPrice,
		&item.LastUpdated, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	item.Site = models.Site(site)
	if len(coupon) > 0 {
		var c models.Coupon
		if err := json.Unmarshal(coupon, &c); err == nil {
			item.Coupon = &c
		}
	}
	return &item, nil
}

func marshalCoupon(c *models.Coupon) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coupon: %w", err)
	}
	return data, nil
}
