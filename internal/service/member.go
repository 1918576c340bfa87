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

// MemberDateFormat is the timestamp layout for the date_joined CSV column.
const MemberDateFormat = "2006-01-02T15:04:05"

var (
	memberColumns = []string{"name", "surname", "booking_count", "date_joined"}
	memberKey     = []string{"name", "surname"}
)

// MemberBulkStore is the member persistence needed by ingestion.
type MemberBulkStore interface {
	List(ctx context.Context) ([]model.Member, error)
	InsertBulk(ctx context.Context, members []model.Member) error
	InsertEach(ctx context.Context, members []model.Member) []model.FailedRow
}

// MemberService ingests and lists members.
type MemberService struct {
	members MemberBulkStore
	log     *slog.Logger
}

// NewMemberService constructs a MemberService.
func NewMemberService(members MemberBulkStore, log *slog.Logger) *MemberService {
	return &MemberService{members: members, log: log}
}

// Ingest reads member rows from CSV and inserts the valid ones. With
// bulk set the cleaned batch is written all-or-nothing; otherwise each
// row is attempted independently. The returned list accumulates every
// failed row: duplicates, rows with missing fields, coercion failures
// and insertion failures. An empty list means full success.
func (s *MemberService) Ingest(ctx context.Context, r io.Reader, bulk bool) ([]model.FailedRow, error) {
	rows, failed, err := cleanCSV(r, memberColumns, memberKey)
	if err != nil {
		return nil, err
	}

	var members []model.Member
	for _, row := range rows {
		m, reason := coerceMember(row)
		if reason != "" {
			s.log.Warn("member row rejected", "name", row["name"], "reason", reason)
			failed = append(failed, model.FailedRow{Row: row, Reason: reason})
			continue
		}
		members = append(members, m)
	}

	inserted := len(members)
	if bulk {
		if err := s.members.InsertBulk(ctx, members); err != nil {
			s.log.Error("bulk member insert rolled back", "rows", len(members), "error", err)
			failed = append(failed, model.FailedRow{
				Reason: "failed to bulk insert whole batch, insertion rolled back: " + err.Error(),
			})
			inserted = 0
		}
	} else {
		insertFailed := s.members.InsertEach(ctx, members)
		failed = append(failed, insertFailed...)
		inserted -= len(insertFailed)
	}

	metrics.IngestedRowsTotal.WithLabelValues("member", "ok").Add(float64(inserted))
	metrics.IngestedRowsTotal.WithLabelValues("member", "failed").Add(float64(len(failed)))

	return failed, nil
}

// List returns all members.
func (s *MemberService) List(ctx context.Context) ([]model.Member, error) {
	return s.members.List(ctx)
}

func coerceMember(row map[string]string) (model.Member, string) {
	count, err := strconv.Atoi(row["booking_count"])
	if err != nil {
		return model.Member{}, "booking_count is not an integer"
	}
	joined, err := time.Parse(MemberDateFormat, row["date_joined"])
	if err != nil {
		return model.Member{}, "date_joined is not a " + MemberDateFormat + " timestamp"
	}
	return model.Member{
		Name:         row["name"],
		Surname:      row["surname"],
		BookingCount: count,
		DateJoined:   joined,
	}, ""
}
