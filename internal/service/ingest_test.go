package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookdesk/internal/model"
)

type fakeMemberBulkStore struct {
	inserted   []model.Member
	bulkErr    error
	eachFailed []model.FailedRow
}

func (f *fakeMemberBulkStore) List(ctx context.Context) ([]model.Member, error) {
	return f.inserted, nil
}

func (f *fakeMemberBulkStore) InsertBulk(ctx context.Context, members []model.Member) error {
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.inserted = append(f.inserted, members...)
	return nil
}

func (f *fakeMemberBulkStore) InsertEach(ctx context.Context, members []model.Member) []model.FailedRow {
	f.inserted = append(f.inserted, members...)
	return f.eachFailed
}

type fakeInventoryBulkStore struct {
	inserted []model.InventoryItem
}

func (f *fakeInventoryBulkStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	return f.inserted, nil
}

func (f *fakeInventoryBulkStore) InsertBulk(ctx context.Context, items []model.InventoryItem) error {
	f.inserted = append(f.inserted, items...)
	return nil
}

func (f *fakeInventoryBulkStore) InsertEach(ctx context.Context, items []model.InventoryItem) []model.FailedRow {
	f.inserted = append(f.inserted, items...)
	return nil
}

const memberHeader = "name,surname,booking_count,date_joined\n"

func TestMemberIngest_AllValid(t *testing.T) {
	store := &fakeMemberBulkStore{}
	svc := NewMemberService(store, testLogger())

	csv := memberHeader +
		"John,Doe,0,2024-01-15T09:30:00\n" +
		"Jane,Roe,1,2023-11-02T14:00:00\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "John", store.inserted[0].Name)
	assert.Equal(t, 1, store.inserted[1].BookingCount)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), store.inserted[0].DateJoined)
}

func TestMemberIngest_DuplicatesAndMissingFields(t *testing.T) {
	store := &fakeMemberBulkStore{}
	svc := NewMemberService(store, testLogger())

	// Four clean rows, one duplicate of the first, one missing surname.
	csv := memberHeader +
		"John,Doe,0,2024-01-15T09:30:00\n" +
		"Jane,Roe,1,2023-11-02T14:00:00\n" +
		"Ann,Lee,0,2024-03-01T08:00:00\n" +
		"Bob,Kay,2,2022-06-30T17:45:00\n" +
		"John,Doe,5,2024-05-05T05:05:05\n" +
		"Eve,,0,2024-02-02T02:02:02\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Len(t, store.inserted, 4)

	reasons := []string{failed[0].Reason, failed[1].Reason}
	assert.Contains(t, reasons, "duplicate of an earlier row")
	assert.Contains(t, reasons, "missing required field surname")
}

func TestMemberIngest_CoercionFailure(t *testing.T) {
	store := &fakeMemberBulkStore{}
	svc := NewMemberService(store, testLogger())

	csv := memberHeader +
		"John,Doe,zero,2024-01-15T09:30:00\n" +
		"Jane,Roe,1,not-a-date\n" +
		"Ann,Lee,0,2024-03-01T08:00:00\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "booking_count is not an integer", failed[0].Reason)
	assert.Contains(t, failed[1].Reason, "date_joined")
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Ann", store.inserted[0].Name)
}

func TestMemberIngest_MissingHeaderRejectsFile(t *testing.T) {
	store := &fakeMemberBulkStore{}
	svc := NewMemberService(store, testLogger())

	csv := "name,booking_count,date_joined\n" +
		"John,0,2024-01-15T09:30:00\n"

	_, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	assert.ErrorIs(t, err, ErrInvalidFile)
	assert.Empty(t, store.inserted)
}

func TestMemberIngest_AllEmptyColumnRejectsFile(t *testing.T) {
	store := &fakeMemberBulkStore{}
	svc := NewMemberService(store, testLogger())

	// The surname header is present but every cell under it is empty,
	// so the column carries no data and the file fails the header check.
	csv := memberHeader +
		"John,,0,2024-01-15T09:30:00\n" +
		"Jane,,1,2023-11-02T14:00:00\n"

	_, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestMemberIngest_EmptyFileRejected(t *testing.T) {
	svc := NewMemberService(&fakeMemberBulkStore{}, testLogger())

	_, err := svc.Ingest(context.Background(), strings.NewReader(""), false)

	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestMemberIngest_BulkRollback(t *testing.T) {
	store := &fakeMemberBulkStore{bulkErr: errors.New("duplicate key value violates unique constraint")}
	svc := NewMemberService(store, testLogger())

	csv := memberHeader +
		"John,Doe,0,2024-01-15T09:30:00\n" +
		"Jane,Roe,1,2023-11-02T14:00:00\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), true)

	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Reason, "insertion rolled back")
	assert.Empty(t, store.inserted, "all-or-nothing: nothing lands on failure")
}

func TestMemberIngest_BulkSuccess(t *testing.T) {
	store := &fakeMemberBulkStore{}
	svc := NewMemberService(store, testLogger())

	csv := memberHeader +
		"John,Doe,0,2024-01-15T09:30:00\n" +
		"Jane,Roe,1,2023-11-02T14:00:00\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), true)

	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Len(t, store.inserted, 2)
}

func TestMemberIngest_EachInsertFailuresReported(t *testing.T) {
	store := &fakeMemberBulkStore{eachFailed: []model.FailedRow{
		{Row: map[string]string{"name": "John", "surname": "Doe"}, Reason: "duplicate key value"},
	}}
	svc := NewMemberService(store, testLogger())

	csv := memberHeader +
		"John,Doe,0,2024-01-15T09:30:00\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "duplicate key value", failed[0].Reason)
}

func TestInventoryIngest_AllValid(t *testing.T) {
	store := &fakeInventoryBulkStore{}
	svc := NewInventoryService(store, testLogger())

	csv := "title,description,remaining_count,expiration_date\n" +
		"Widget,A widget,5,31/12/2030\n" +
		"Gadget,A gadget,2,01/06/2027\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC), store.inserted[0].ExpirationDate)
	assert.Equal(t, 2, store.inserted[1].RemainingCount)
}

func TestInventoryIngest_DuplicateTitleAndBadDate(t *testing.T) {
	store := &fakeInventoryBulkStore{}
	svc := NewInventoryService(store, testLogger())

	csv := "title,description,remaining_count,expiration_date\n" +
		"Widget,A widget,5,31/12/2030\n" +
		"Widget,Same title again,1,01/01/2031\n" +
		"Gadget,A gadget,2,2027-06-01\n"

	failed, err := svc.Ingest(context.Background(), strings.NewReader(csv), false)

	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "duplicate of an earlier row", failed[0].Reason)
	assert.Contains(t, failed[1].Reason, "expiration_date")
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Widget", store.inserted[0].Title)
}

func TestCleanCSV_SkipsFullyEmptyRows(t *testing.T) {
	csv := "name,surname,booking_count,date_joined\n" +
		"John,Doe,0,2024-01-15T09:30:00\n" +
		",,,\n" +
		"Jane,Roe,1,2023-11-02T14:00:00\n"

	rows, failed, err := cleanCSV(strings.NewReader(csv), memberColumns, memberKey)

	require.NoError(t, err)
	assert.Empty(t, failed, "blank rows are dropped, not reported")
	assert.Len(t, rows, 2)
}

func TestCleanCSV_ProjectsExtraColumnsAway(t *testing.T) {
	csv := "name,surname,booking_count,date_joined,shoe_size\n" +
		"John,Doe,0,2024-01-15T09:30:00,44\n"

	rows, failed, err := cleanCSV(strings.NewReader(csv), memberColumns, memberKey)

	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, rows, 1)
	_, ok := rows[0]["shoe_size"]
	assert.False(t, ok, "unknown columns do not survive projection")
}
