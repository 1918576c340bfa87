package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"bookdesk/internal/metrics"
	"bookdesk/internal/model"
)

// ItemDateFormat is the day/month/year layout for the expiration_date
// CSV column.
const ItemDateFormat = "02/01/2006"

var (
	inventoryColumns = []string{"title", "description", "remaining_count", "expiration_date"}
	inventoryKey     = []string{"title"}
)

// InventoryBulkStore is the inventory persistence needed by ingestion.
type InventoryBulkStore interface {
	List(ctx context.Context) ([]model.InventoryItem, error)
	InsertBulk(ctx context.Context, items []model.InventoryItem) error
	InsertEach(ctx context.Context, items []model.InventoryItem) []model.FailedRow
}

// InventoryService ingests and lists inventory items.
type InventoryService struct {
	inventory InventoryBulkStore
	log       *slog.Logger
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(inventory InventoryBulkStore, log *slog.Logger) *InventoryService {
	return &InventoryService{inventory: inventory, log: log}
}

// Ingest reads inventory rows from CSV and inserts the valid ones,
// following the same partial-failure contract as MemberService.Ingest.
func (s *InventoryService) Ingest(ctx context.Context, r io.Reader, bulk bool) ([]model.FailedRow, error) {
	rows, failed, err := cleanCSV(r, inventoryColumns, inventoryKey)
	if err != nil {
		return nil, err
	}

	var items []model.InventoryItem
	for _, row := range rows {
		it, reason := coerceItem(row)
		if reason != "" {
			s.log.Warn("inventory row rejected", "title", row["title"], "reason", reason)
			failed = append(failed, model.FailedRow{Row: row, Reason: reason})
			continue
		}
		items = append(items, it)
	}

	inserted := len(items)
	if bulk {
		if err := s.inventory.InsertBulk(ctx, items); err != nil {
			s.log.Error("bulk inventory insert rolled back", "rows", len(items), "error", err)
			failed = append(failed, model.FailedRow{
				Reason: "failed to bulk insert whole batch, insertion rolled back: " + err.Error(),
			})
			inserted = 0
		}
	} else {
		insertFailed := s.inventory.InsertEach(ctx, items)
		failed = append(failed, insertFailed...)
		inserted -= len(insertFailed)
	}

	metrics.IngestedRowsTotal.WithLabelValues("inventory", "ok").Add(float64(inserted))
	metrics.IngestedRowsTotal.WithLabelValues("inventory", "failed").Add(float64(len(failed)))

	return failed, nil
}

// List returns all inventory items.
func (s *InventoryService) List(ctx context.Context) ([]model.InventoryItem, error) {
	return s.inventory.List(ctx)
}

func coerceItem(row map[string]string) (model.InventoryItem, string) {
	count, err := strconv.Atoi(row["remaining_count"])
	if err != nil {
		return model.InventoryItem{}, "remaining_count is not an integer"
	}
	expiry, err := time.Parse(ItemDateFormat, row["expiration_date"])
	if err != nil {
		return model.InventoryItem{}, "expiration_date is not a " + ItemDateFormat + " date"
	}
	return model.InventoryItem{
		Title:          row["title"],
		Description:    row["description"],
		RemainingCount: count,
		ExpirationDate: expiry,
	}, ""
}
