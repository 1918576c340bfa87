package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookdesk/internal/model"
)

// itemDateFormat matches the CSV ingestion format for expiration dates.
const itemDateFormat = "02/01/2006"

// InventoryRepository handles persistence for inventory items.
type InventoryRepository struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

// NewInventoryRepository constructs an InventoryRepository.
func NewInventoryRepository(db *pgxpool.Pool, log *slog.Logger) *InventoryRepository {
	return &InventoryRepository{db: db, log: log}
}

// GetByTitleForUpdate looks an item up by its title and acquires a
// row-level exclusive lock, serializing concurrent bookings against the
// same item. q must be a transaction. Returns ErrItemNotFound when no
// row matches.
func (r *InventoryRepository) GetByTitleForUpdate(ctx context.Context, q Querier, title string) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := q.QueryRow(ctx,
		`SELECT id, title, description, remaining_count, expiration_date
		 FROM inventory
		 WHERE title = $1
		 FOR UPDATE`,
		title,
	).Scan(&it.ID, &it.Title, &it.Description, &it.RemainingCount, &it.ExpirationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("lock inventory row: %w", err)
	}
	return &it, nil
}

// GetByIDForUpdate locks and returns an item by its row id.
func (r *InventoryRepository) GetByIDForUpdate(ctx context.Context, q Querier, id int64) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := q.QueryRow(ctx,
		`SELECT id, title, description, remaining_count, expiration_date
		 FROM inventory
		 WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&it.ID, &it.Title, &it.Description, &it.RemainingCount, &it.ExpirationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("lock inventory row: %w", err)
	}
	return &it, nil
}

// AdjustRemaining shifts an item's remaining counter by delta inside the
// caller's transaction.
func (r *InventoryRepository) AdjustRemaining(ctx context.Context, q Querier, id int64, delta int) error {
	_, err := q.Exec(ctx,
		`UPDATE inventory SET remaining_count = remaining_count + $2 WHERE id = $1`,
		id, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust remaining_count: %w", err)
	}
	return nil
}

// List returns all inventory items ordered by title.
func (r *InventoryRepository) List(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, remaining_count, expiration_date
		 FROM inventory
		 ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.RemainingCount, &it.ExpirationDate); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertBulk writes all items in one transaction; any failure rolls the
// whole batch back.
func (r *InventoryRepository) InsertBulk(ctx context.Context, items []model.InventoryItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO inventory (title, description, remaining_count, expiration_date)
			 VALUES ($1, $2, $3, $4)`,
			it.Title, it.Description, it.RemainingCount, it.ExpirationDate,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("bulk insert inventory: %w", err)
	}
	return tx.Commit(ctx)
}

// InsertEach attempts each item independently and reports failed rows
// with their original fields and a truncated error text.
func (r *InventoryRepository) InsertEach(ctx context.Context, items []model.InventoryItem) []model.FailedRow {
	var failed []model.FailedRow
	for _, it := range items {
		_, err := r.db.Exec(ctx,
			`INSERT INTO inventory (title, description, remaining_count, expiration_date)
			 VALUES ($1, $2, $3, $4)`,
			it.Title, it.Description, it.RemainingCount, it.ExpirationDate,
		)
		if err != nil {
			r.log.Error("inventory insert failed", "title", it.Title, "error", err)
			failed = append(failed, model.FailedRow{
				Row:    inventoryRow(it),
				Reason: "failed to insert row: " + truncateReason(err),
			})
		}
	}
	return failed
}

func inventoryRow(it model.InventoryItem) map[string]string {
	return map[string]string{
		"title":           it.Title,
		"description":     it.Description,
		"remaining_count": strconv.Itoa(it.RemainingCount),
		"expiration_date": it.ExpirationDate.Format(itemDateFormat),
	}
}
