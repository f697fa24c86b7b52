package domain

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketReserved TicketStatus = "reserved"
	TicketPaid     TicketStatus = "paid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string `json:"-"`
	IsAdmin      bool
	CreatedAt    time.Time
}

func (u *User) Role() Role {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Screening is one scheduled showing of a movie with a fixed seat
// capacity. ClaimedSeats is mutated only through the conditional claim
// in the booking service; Capacity never changes after creation.
type Screening struct {
	ID         int64
	Title      string
	PosterURL  string
	Capacity   int
	StartsAt   time.Time
	Genre      string
	Duration   string
	PriceCents int
	CreatedAt  time.Time

	ClaimedSeats []int
}

type Ticket struct {
	ID          uuid.UUID
	ScreeningID int64
	SeatNumber  int
	OwnerID     int64
	Status      TicketStatus
	CreatedAt   time.Time
	PaidAt      *time.Time
}

// TicketWithScreening is the owner-facing ticket view, enriched with
// the screening's display fields via a read-only join.
type TicketWithScreening struct {
	Ticket
	ScreeningTitle  string
	ScreeningStarts time.Time
	PosterURL       string
}
