// Package model defines the core domain types for the booking system.
package model

import "time"

// Member is a registered member who can hold bookings.
// The (name, surname) pair is unique and acts as the natural key.
type Member struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	BookingCount int       `json:"booking_count"`
	DateJoined   time.Time `json:"date_joined"`
}

// InventoryItem is a bookable item with a finite count and an expiration
// date. The title is unique and acts as the natural key.
type InventoryItem struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RemainingCount int       `json:"remaining_count"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// Expired reports whether the item can no longer be booked at the given
// instant. Expiry never invalidates bookings that already exist.
func (i *InventoryItem) Expired(now time.Time) bool {
	return !i.ExpirationDate.After(now)
}

// Depleted reports whether no copies remain.
func (i *InventoryItem) Depleted() bool {
	return i.RemainingCount <= 0
}

// Booking links one member to one inventory item. The reference is the
// externally presented identifier, distinct from the row id, and is
// unique across all bookings ever created.
type Booking struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	InventoryID int64     `json:"inventory_id"`
	Reference   string    `json:"booking_reference"`
	BookedAt    time.Time `json:"booked_at"`
}

// User is an API account. Passwords are stored only as bcrypt hashes.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"fullname"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// BookRequest is the payload for booking an item for a member.
type BookRequest struct {
	MemberName    string `json:"member_name" validate:"required"`
	MemberSurname string `json:"member_surname" validate:"required"`
	ItemName      string `json:"item_name" validate:"required"`
}

// CancelRequest is the payload for cancelling a booking.
type CancelRequest struct {
	MemberName    string `json:"member_name" validate:"required"`
	MemberSurname string `json:"member_surname" validate:"required"`
	Reference     string `json:"booking_reference" validate:"required"`
}

// LoginRequest carries account credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the payload for creating an API account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	FullName string `json:"fullname"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
}

// FailedRow describes one CSV row that could not be ingested, carrying
// enough of the original content to diagnose and resubmit.
type FailedRow struct {
	Row    map[string]string `json:"row"`
	Reason string            `json:"reason"`
}

// Response is the JSON envelope wrapping every API response. The HTTP
// status code always mirrors Status.
type Response struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
