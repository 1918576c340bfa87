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

// memberDateFormat matches the CSV ingestion format so that failed rows
// can be corrected and resubmitted as-is.
const memberDateFormat = "2006-01-02T15:04:05"

// MemberRepository handles persistence for members.
type MemberRepository struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

// NewMemberRepository constructs a MemberRepository.
func NewMemberRepository(db *pgxpool.Pool, log *slog.Logger) *MemberRepository {
	return &MemberRepository{db: db, log: log}
}

// GetByNameForUpdate looks a member up by the (name, surname) natural key
// and acquires a row-level exclusive lock. Concurrent booking attempts
// against the same member serialize on this lock, so q must be a
// transaction. Returns ErrMemberNotFound when no row matches.
func (r *MemberRepository) GetByNameForUpdate(ctx context.Context, q Querier, name, surname string) (*model.Member, error) {
	var m model.Member
	err := q.QueryRow(ctx,
		`SELECT id, name, surname, booking_count, date_joined
		 FROM members
		 WHERE name = $1 AND surname = $2
		 FOR UPDATE`,
		name, surname,
	).Scan(&m.ID, &m.Name, &m.Surname, &m.BookingCount, &m.DateJoined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("lock member row: %w", err)
	}
	return &m, nil
}

// AdjustBookingCount shifts a member's booking counter by delta inside
// the caller's transaction.
func (r *MemberRepository) AdjustBookingCount(ctx context.Context, q Querier, id int64, delta int) error {
	_, err := q.Exec(ctx,
		`UPDATE members SET booking_count = booking_count + $2 WHERE id = $1`,
		id, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust booking_count: %w", err)
	}
	return nil
}

// List returns all members ordered by join date.
func (r *MemberRepository) List(ctx context.Context) ([]model.Member, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, surname, booking_count, date_joined
		 FROM members
		 ORDER BY date_joined, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Surname, &m.BookingCount, &m.DateJoined); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// InsertBulk writes all members in one transaction. Any single failure
// rolls back the entire batch and surfaces as one error.
func (r *MemberRepository) InsertBulk(ctx context.Context, members []model.Member) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, m := range members {
		batch.Queue(
			`INSERT INTO members (name, surname, booking_count, date_joined)
			 VALUES ($1, $2, $3, $4)`,
			m.Name, m.Surname, m.BookingCount, m.DateJoined,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("bulk insert members: %w", err)
	}
	return tx.Commit(ctx)
}

// InsertEach attempts each member independently; a failure on one row
// does not block the others. Every failed row is reported with its
// original fields and a truncated error text.
func (r *MemberRepository) InsertEach(ctx context.Context, members []model.Member) []model.FailedRow {
	var failed []model.FailedRow
	for _, m := range members {
		_, err := r.db.Exec(ctx,
			`INSERT INTO members (name, surname, booking_count, date_joined)
			 VALUES ($1, $2, $3, $4)`,
			m.Name, m.Surname, m.BookingCount, m.DateJoined,
		)
		if err != nil {
			r.log.Error("member insert failed",
				"name", m.Name, "surname", m.Surname, "error", err)
			failed = append(failed, model.FailedRow{
				Row:    memberRow(m),
				Reason: "failed to insert row: " + truncateReason(err),
			})
		}
	}
	return failed
}

func memberRow(m model.Member) map[string]string {
	return map[string]string{
		"name":          m.Name,
		"surname":       m.Surname,
		"booking_count": strconv.Itoa(m.BookingCount),
		"date_joined":   m.DateJoined.Format(memberDateFormat),
	}
}
