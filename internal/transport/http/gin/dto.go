package httpgin

import (
	"time"

	"github.com/movieflex/movieflex/internal/domain"
)

type RegisterRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	IsAdmin   bool   `json:"is_admin"`
	AdminCode string `json:"admin_code"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type BookSeatRequest struct {
	Seat int `json:"seat" binding:"required"`
}

type TicketResponse struct {
	ID          string     `json:"id"`
	ScreeningID int64      `json:"screening_id"`
	Seat        int        `json:"seat"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type TicketListItem struct {
	TicketResponse
	ScreeningTitle  string    `json:"screening_title"`
	ScreeningStarts time.Time `json:"screening_starts"`
	PosterURL       string    `json:"poster_url"`
}

type ScreeningResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	PosterURL    string    `json:"poster_url"`
	Capacity     int       `json:"capacity"`
	StartsAt     time.Time `json:"starts_at"`
	Genre        string    `json:"genre,omitempty"`
	Duration     string    `json:"duration,omitempty"`
	PriceCents   int       `json:"price_cents"`
	ClaimedSeats []int     `json:"claimed_seats"`
}

type CreateScreeningRequest struct {
	Title      string `json:"title" binding:"required"`
	PosterURL  string `json:"poster_url" binding:"required"`
	Capacity   int    `json:"capacity" binding:"required,gt=0"`
	StartsAt   string `json:"starts_at" binding:"required"`
	Genre      string `json:"genre"`
	Duration   string `json:"duration"`
	PriceCents int    `json:"price_cents"`
}

type UpdateScreeningRequest struct {
	Title      string `json:"title" binding:"required"`
	PosterURL  string `json:"poster_url" binding:"required"`
	StartsAt   string `json:"starts_at" binding:"required"`
	Genre      string `json:"genre"`
	Duration   string `json:"duration"`
	PriceCents int    `json:"price_cents"`
}

type CreateScreeningResponse struct {
	ScreeningID int64 `json:"screening_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role()),
	}
}

func toTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID.String(),
		ScreeningID: t.ScreeningID,
		Seat:        t.SeatNumber,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		PaidAt:      t.PaidAt,
	}
}

func toScreeningResponse(s *domain.Screening) ScreeningResponse {
	claimed := s.ClaimedSeats
	if claimed == nil {
		claimed = []int{}
	}

	return ScreeningResponse{
		ID:           s.ID,
		Title:        s.Title,
		PosterURL:    s.PosterURL,
		Capacity:     s.Capacity,
		StartsAt:     s.StartsAt,
		Genre:        s.Genre,
		Duration:     s.Duration,
		PriceCents:   s.PriceCents,
		ClaimedSeats: claimed,
	}
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
