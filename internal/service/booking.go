// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookdesk/internal/metrics"
	"bookdesk/internal/model"
	"bookdesk/internal/repository"
)

// TxBeginner opens transactions; satisfied by *repository.DB.
type TxBeginner interface {
	Begin(ctx context.Context) (repository.Tx, error)
}

// MemberStore is the member persistence needed by the booking engine.
type MemberStore interface {
	GetByNameForUpdate(ctx context.Context, q repository.Querier, name, surname string) (*model.Member, error)
	AdjustBookingCount(ctx context.Context, q repository.Querier, id int64, delta int) error
}

// InventoryStore is the inventory persistence needed by the booking engine.
type InventoryStore interface {
	GetByTitleForUpdate(ctx context.Context, q repository.Querier, title string) (*model.InventoryItem, error)
	GetByIDForUpdate(ctx context.Context, q repository.Querier, id int64) (*model.InventoryItem, error)
	AdjustRemaining(ctx context.Context, q repository.Querier, id int64, delta int) error
}

// BookingStore is the booking persistence needed by the booking engine.
type BookingStore interface {
	GetByReference(ctx context.Context, q repository.Querier, reference string) (*model.Booking, error)
	Create(ctx context.Context, q repository.Querier, b *model.Booking) error
	Delete(ctx context.Context, q repository.Querier, id int64) error
	List(ctx context.Context) ([]model.Booking, error)
}

// BookingService runs the booking and cancellation transactions.
//
// Both operations validate and mutate inside a single transaction, with
// the member and inventory rows locked by SELECT ... FOR UPDATE. Two
// concurrent attempts against the same member or item therefore
// serialize: the second blocks on the row lock and re-reads state the
// first has already committed, which is what keeps remaining_count from
// being driven below zero.
type BookingService struct {
	db          TxBeginner
	members     MemberStore
	inventory   InventoryStore
	bookings    BookingStore
	maxBookings int
	log         *slog.Logger
}

// NewBookingService constructs a BookingService. maxBookings is the cap
// on active bookings per member.
func NewBookingService(
	db TxBeginner,
	members MemberStore,
	inventory InventoryStore,
	bookings BookingStore,
	maxBookings int,
	log *slog.Logger,
) *BookingService {
	return &BookingService{
		db:          db,
		members:     members,
		inventory:   inventory,
		bookings:    bookings,
		maxBookings: maxBookings,
		log:         log,
	}
}

// Book books one copy of the named item for the named member.
//
// The validation checks run in a fixed order and short-circuit on the
// first violation: member existence, member limit, item existence, item
// expiry, item depletion. On success, one atomic unit of work creates
// the booking row, decrements the item's remaining_count and increments
// the member's booking_count.
func (s *BookingService) Book(ctx context.Context, req model.BookRequest) (*model.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	member, err := s.members.GetByNameForUpdate(ctx, tx, req.MemberName, req.MemberSurname)
	if err != nil {
		return nil, s.bookFailed(err)
	}
	if member.BookingCount >= s.maxBookings {
		return nil, s.bookFailed(fmt.Errorf("%w of %d", repository.ErrMemberLimitExceeded, s.maxBookings))
	}

	item, err := s.inventory.GetByTitleForUpdate(ctx, tx, req.ItemName)
	if err != nil {
		return nil, s.bookFailed(err)
	}
	if item.Expired(time.Now().UTC()) {
		return nil, s.bookFailed(repository.ErrItemExpired)
	}
	if item.Depleted() {
		return nil, s.bookFailed(repository.ErrItemDepleted)
	}

	booking := &model.Booking{
		MemberID:    member.ID,
		InventoryID: item.ID,
		Reference:   uuid.New().String(),
		BookedAt:    time.Now().UTC(),
	}
	if err := s.bookings.Create(ctx, tx, booking); err != nil {
		return nil, s.bookFailed(err)
	}
	if err := s.inventory.AdjustRemaining(ctx, tx, item.ID, -1); err != nil {
		return nil, s.bookFailed(err)
	}
	if err := s.members.AdjustBookingCount(ctx, tx, member.ID, +1); err != nil {
		return nil, s.bookFailed(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.bookFailed(fmt.Errorf("commit transaction: %w", err))
	}

	metrics.BookingsTotal.WithLabelValues("success").Inc()
	s.log.Info("booking created",
		"reference", booking.Reference,
		"member_id", member.ID,
		"inventory_id", item.ID,
	)
	return booking, nil
}

// Cancel deletes the booking carrying the given reference and restores
// both counters in one atomic unit of work. A booking whose inventory
// row has since been removed is treated as orphaned: the booking is
// still cancelled, only the remaining_count increment is skipped.
func (s *BookingService) Cancel(ctx context.Context, req model.CancelRequest) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	member, err := s.members.GetByNameForUpdate(ctx, tx, req.MemberName, req.MemberSurname)
	if err != nil {
		return s.cancelFailed(err)
	}

	booking, err := s.bookings.GetByReference(ctx, tx, req.Reference)
	if err != nil {
		return s.cancelFailed(err)
	}

	item, err := s.inventory.GetByIDForUpdate(ctx, tx, booking.InventoryID)
	if err != nil && !errors.Is(err, repository.ErrItemNotFound) {
		return s.cancelFailed(err)
	}

	if err := s.bookings.Delete(ctx, tx, booking.ID); err != nil {
		return s.cancelFailed(err)
	}
	if item != nil {
		if err := s.inventory.AdjustRemaining(ctx, tx, item.ID, +1); err != nil {
			return s.cancelFailed(err)
		}
	}
	if err := s.members.AdjustBookingCount(ctx, tx, member.ID, -1); err != nil {
		return s.cancelFailed(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return s.cancelFailed(fmt.Errorf("commit transaction: %w", err))
	}

	metrics.CancellationsTotal.WithLabelValues("success").Inc()
	s.log.Info("booking cancelled",
		"reference", booking.Reference,
		"member_id", member.ID,
	)
	return nil
}

// ListBookings returns every booking.
func (s *BookingService) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return s.bookings.List(ctx)
}

func (s *BookingService) bookFailed(err error) error {
	metrics.BookingsTotal.WithLabelValues("failure").Inc()
	return err
}

func (s *BookingService) cancelFailed(err error) error {
	metrics.CancellationsTotal.WithLabelValues("failure").Inc()
	return err
}
