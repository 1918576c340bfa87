// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"bookdesk/internal/model"
	"bookdesk/internal/repository"
	"bookdesk/internal/service"
)

// BookingService is the booking engine surface used by the handlers.
type BookingService interface {
	Book(ctx context.Context, req model.BookRequest) (*model.Booking, error)
	Cancel(ctx context.Context, req model.CancelRequest) error
	ListBookings(ctx context.Context) ([]model.Booking, error)
}

// MemberService is the member surface used by the handlers.
type MemberService interface {
	Ingest(ctx context.Context, r io.Reader, bulk bool) ([]model.FailedRow, error)
	List(ctx context.Context) ([]model.Member, error)
}

// InventoryService is the inventory surface used by the handlers.
type InventoryService interface {
	Ingest(ctx context.Context, r io.Reader, bulk bool) ([]model.FailedRow, error)
	List(ctx context.Context) ([]model.InventoryItem, error)
}

// AuthService is the authentication surface used by the handlers.
type AuthService interface {
	Login(ctx context.Context, req model.LoginRequest) (string, *model.User, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	VerifyToken(ctx context.Context, token string) (*model.User, error)
}

// Handler holds all HTTP handlers for the booking API.
type Handler struct {
	bookings  BookingService
	members   MemberService
	inventory InventoryService
	auth      AuthService
	validate  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(bookings BookingService, members MemberService, inventory InventoryService, auth AuthService) *Handler {
	v := validator.New()
	// password: at least 8 characters, one digit and one letter.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordValid(fl.Field().String())
	})

	return &Handler{
		bookings:  bookings,
		members:   members,
		inventory: inventory,
		auth:      auth,
		validate:  v,
	}
}

func passwordValid(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var digit, letter bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	return digit && letter
}

// ─── Envelope helpers ────────────────────────────────────────────────────────

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Response{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func writeOK(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, "successful", data)
}

func writeError(w http.ResponseWriter, err error) {
	writeEnvelope(w, statusFor(err), err.Error(), nil)
}

// statusFor maps each failure kind to exactly one HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrMemberNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrMemberLimitExceeded),
		errors.Is(err, repository.ErrItemDepleted):
		return http.StatusNotAcceptable
	case errors.Is(err, repository.ErrItemExpired):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrInvalidFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeValid decodes the JSON body into dst and runs struct validation.
func (h *Handler) decodeValid(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// ─── Authentication ──────────────────────────────────────────────────────────

// Login handles POST /login
// Validates credentials and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	token, user, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      user.ID,
		Username:    user.Username,
	})
}

// CreateAccount handles POST /create
// Registers an API account. The password policy (at least 8 characters,
// one digit, one letter) is enforced before the service is called.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, user)
}

// ─── Bookings ────────────────────────────────────────────────────────────────

// Book handles POST /book
// Books one copy of the named item for the named member.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req model.BookRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	booking, err := h.bookings.Book(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, booking)
}

// Cancel handles POST /cancel
// Cancels the booking carrying the given reference.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	if err := h.bookings.Cancel(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, "successful", "Successfully cancelled booking")
}

// ListBookings handles GET /all
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListBookings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeOK(w, bookings)
}

// ─── Members ─────────────────────────────────────────────────────────────────

// ListMembers handles GET /all-members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeOK(w, members)
}

// UploadMembers handles POST /upload-members?bulk_update=bool
func (h *Handler) UploadMembers(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.members.Ingest, "added all members successfully")
}

// ─── Inventory ───────────────────────────────────────────────────────────────

// ListInventory handles GET /view-all
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	writeOK(w, items)
}

// UploadInventory handles POST /upload-inventories?bulk_update=bool
func (h *Handler) UploadInventory(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.inventory.Ingest, "added all inventories successfully")
}

// upload runs the shared multipart-CSV ingestion contract: 200 on full
// success, 206 with the failed rows attached on partial success.
func (h *Handler) upload(
	w http.ResponseWriter,
	r *http.Request,
	ingest func(context.Context, io.Reader, bool) ([]model.FailedRow, error),
	successMsg string,
) {
	bulk, _ := strconv.ParseBool(r.URL.Query().Get("bulk_update"))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, "missing file upload: "+err.Error(), nil)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, fmt.Errorf("%w: only CSV files are allowed", service.ErrInvalidFile))
		return
	}

	failed, err := ingest(r.Context(), file, bulk)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(failed) > 0 {
		writeEnvelope(w, http.StatusPartialContent,
			"partial data insertion successful, failed information is attached", failed)
		return
	}
	writeEnvelope(w, http.StatusOK, "successful", successMsg)
}

// ─── Health check ────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}
