package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookdesk/internal/model"
)

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetByReference returns the booking carrying the given reference, or
// ErrBookingNotFound.
func (r *BookingRepository) GetByReference(ctx context.Context, q Querier, reference string) (*model.Booking, error) {
	var b model.Booking
	err := q.QueryRow(ctx,
		`SELECT id, member_id, inventory_id, booking_reference, booked_at
		 FROM bookings
		 WHERE booking_reference = $1`,
		reference,
	).Scan(&b.ID, &b.MemberID, &b.InventoryID, &b.Reference, &b.BookedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &b, nil
}

// Create inserts a booking row inside the caller's transaction and fills
// in the generated id.
func (r *BookingRepository) Create(ctx context.Context, q Querier, b *model.Booking) error {
	err := q.QueryRow(ctx,
		`INSERT INTO bookings (member_id, inventory_id, booking_reference, booked_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		b.MemberID, b.InventoryID, b.Reference, b.BookedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Delete removes a booking row inside the caller's transaction. Deleting
// an already-deleted booking reports ErrBookingNotFound.
func (r *BookingRepository) Delete(ctx context.Context, q Querier, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// List returns all bookings ordered by booking time.
func (r *BookingRepository) List(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, member_id, inventory_id, booking_reference, booked_at
		 FROM bookings
		 ORDER BY booked_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.MemberID, &b.InventoryID, &b.Reference, &b.BookedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
