package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
	"github.com/movieflex/movieflex/internal/service"
	"github.com/movieflex/movieflex/internal/service/auth"
	"github.com/movieflex/movieflex/internal/service/booking"
	"github.com/movieflex/movieflex/internal/service/tickets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore backs the booking, ticket and user collaborators with one
// in-memory state so a booked ticket can be paid in the same test.
type memStore struct {
	mu         sync.Mutex
	nextUserID int64
	users      map[int64]*domain.User
	screenings map[int64]*domain.Screening
	claimed    map[[2]int64]bool
	tickets    map[uuid.UUID]*domain.Ticket
}

func newMemStore(screenings ...*domain.Screening) *memStore {
	m := &memStore{
		users:      make(map[int64]*domain.User),
		screenings: make(map[int64]*domain.Screening),
		claimed:    make(map[[2]int64]bool),
		tickets:    make(map[uuid.UUID]*domain.Ticket),
	}
	for _, s := range screenings {
		m.screenings[s.ID] = s
	}
	return m
}

func (m *memStore) Get(_ context.Context, screeningID int64) (*domain.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.screenings[screeningID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) TryClaimSeat(_ context.Context, screeningID int64, seatNumber int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := [2]int64{screeningID, int64(seatNumber)}
	if m.claimed[k] {
		return false, nil
	}
	m.claimed[k] = true
	return true, nil
}

func (m *memStore) ReleaseSeat(_ context.Context, screeningID int64, seatNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.claimed, [2]int64{screeningID, int64(seatNumber)})
	return nil
}

func (m *memStore) Create(_ context.Context, screeningID int64, seatNumber int, ownerID int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &domain.Ticket{
		ID:          uuid.New(),
		ScreeningID: screeningID,
		SeatNumber:  seatNumber,
		OwnerID:     ownerID,
		Status:      domain.TicketReserved,
		CreatedAt:   time.Now(),
	}
	m.tickets[t.ID] = t
	return t, nil
}

type ticketStore struct{ *memStore }

func (m ticketStore) Get(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m ticketStore) MarkPaid(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.Status != domain.TicketReserved {
		return nil, repository.ErrNotReserved
	}
	now := time.Now()
	t.Status = domain.TicketPaid
	t.PaidAt = &now
	cp := *t
	return &cp, nil
}

func (m ticketStore) ListByOwner(_ context.Context, ownerID int64) ([]domain.TicketWithScreening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.TicketWithScreening, 0)
	for _, t := range m.tickets {
		if t.OwnerID == ownerID {
			item := domain.TicketWithScreening{Ticket: *t}
			if s, ok := m.screenings[t.ScreeningID]; ok {
				item.ScreeningTitle = s.Title
				item.ScreeningStarts = s.StartsAt
				item.PosterURL = s.PosterURL
			}
			out = append(out, item)
		}
	}
	return out, nil
}

type userDirectory struct{ *memStore }

func (m userDirectory) Create(_ context.Context, name, email, passwordHash string, isAdmin bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrEmailTaken
		}
	}

	m.nextUserID++
	m.users[m.nextUserID] = &domain.User{
		ID:           m.nextUserID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
	}
	return m.nextUserID, nil
}

func (m userDirectory) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m userDirectory) Get(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore(&domain.Screening{
		ID:       1,
		Title:    "Blade Runner",
		Capacity: 10,
		StartsAt: time.Now().Add(24 * time.Hour),
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := auth.New(userDirectory{store}, auth.Config{JWTSecret: "test-secret", AdminCode: "hunter2"})

	svcs := &service.Services{
		Booking: booking.New(store, store, nil, nil, nil, logger),
		Tickets: tickets.New(ticketStore{store}, userDirectory{store}, store, nil, logger),
		Auth:    authSvc,
	}

	return NewRouter(svcs, nil, logger), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name:     "Ada",
		Email:    email,
		Password: "s3cret",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAuthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	token := registerUser(t, r, "ada@example.com")
	assert.NotEmpty(t, token)

	// duplicate email
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name: "Eve", Email: "ada@example.com", Password: "s3cret",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// wrong password
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "ada@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// happy login
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "ada@example.com", Password: "s3cret",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookSeat(t *testing.T) {
	r, _ := newTestRouter(t)
	token := registerUser(t, r, "ada@example.com")

	// no token
	w := doJSON(t, r, http.MethodPost, "/screenings/1/book", "", BookSeatRequest{Seat: 3})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// happy path
	w = doJSON(t, r, http.MethodPost, "/screenings/1/book", token, BookSeatRequest{Seat: 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ticket TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, 3, ticket.Seat)
	assert.Equal(t, "reserved", ticket.Status)

	// same seat again
	w = doJSON(t, r, http.MethodPost, "/screenings/1/book", token, BookSeatRequest{Seat: 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	// seat beyond capacity
	w = doJSON(t, r, http.MethodPost, "/screenings/1/book", token, BookSeatRequest{Seat: 11})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown screening
	w = doJSON(t, r, http.MethodPost, "/screenings/99/book", token, BookSeatRequest{Seat: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayTicket(t *testing.T) {
	r, _ := newTestRouter(t)
	owner := registerUser(t, r, "ada@example.com")
	stranger := registerUser(t, r, "eve@example.com")

	w := doJSON(t, r, http.MethodPost, "/screenings/1/book", owner, BookSeatRequest{Seat: 5})
	require.Equal(t, http.StatusCreated, w.Code)

	var ticket TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))

	// someone else's ticket
	w = doJSON(t, r, http.MethodPost, "/tickets/"+ticket.ID+"/pay", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// owner pays
	w = doJSON(t, r, http.MethodPost, "/tickets/"+ticket.ID+"/pay", owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var paid TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paid))
	assert.Equal(t, "paid", paid.Status)
	assert.NotNil(t, paid.PaidAt)

	// paying twice
	w = doJSON(t, r, http.MethodPost, "/tickets/"+ticket.ID+"/pay", owner, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// unknown and malformed IDs
	w = doJSON(t, r, http.MethodPost, "/tickets/"+uuid.NewString()+"/pay", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/tickets/not-a-uuid/pay", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMyTickets(t *testing.T) {
	r, _ := newTestRouter(t)
	owner := registerUser(t, r, "ada@example.com")
	other := registerUser(t, r, "eve@example.com")

	w := doJSON(t, r, http.MethodPost, "/screenings/1/book", owner, BookSeatRequest{Seat: 1})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/screenings/1/book", owner, BookSeatRequest{Seat: 2})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/tickets/me", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var mine []TicketListItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 2)
	assert.Equal(t, "Blade Runner", mine[0].ScreeningTitle)

	w = doJSON(t, r, http.MethodGet, "/tickets/me", other, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var theirs []TicketListItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &theirs))
	assert.Empty(t, theirs)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	r, _ := newTestRouter(t)
	token := registerUser(t, r, "ada@example.com")

	w := doJSON(t, r, http.MethodPost, "/admin/screenings", token, CreateScreeningRequest{
		Title:     "Alien",
		PosterURL: "https://example.com/alien.jpg",
		Capacity:  50,
		StartsAt:  time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/admin/screenings/1", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// Full journey: reserve, lose a race, bounce off the capacity edge, pay,
// get rejected on double payment.
func TestBookingJourney(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemStore(&domain.Screening{
		ID:       7,
		Title:    "Stalker",
		Capacity: 2,
		StartsAt: time.Now().Add(24 * time.Hour),
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := auth.New(userDirectory{store}, auth.Config{JWTSecret: "test-secret"})

	svcs := &service.Services{
		Booking: booking.New(store, store, nil, nil, nil, logger),
		Tickets: tickets.New(ticketStore{store}, userDirectory{store}, store, nil, logger),
		Auth:    authSvc,
	}
	r := NewRouter(svcs, nil, logger)

	u1 := registerUser(t, r, "u1@example.com")
	u2 := registerUser(t, r, "u2@example.com")

	// u1 takes seat 1
	w := doJSON(t, r, http.MethodPost, "/screenings/7/book", u1, BookSeatRequest{Seat: 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var t1 TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &t1))
	assert.Equal(t, "reserved", t1.Status)

	// u2 races for the same seat
	w = doJSON(t, r, http.MethodPost, "/screenings/7/book", u2, BookSeatRequest{Seat: 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	// seat 3 is beyond the 2-seat room
	w = doJSON(t, r, http.MethodPost, "/screenings/7/book", u1, BookSeatRequest{Seat: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// u2 cannot pay u1's ticket
	w = doJSON(t, r, http.MethodPost, "/tickets/"+t1.ID+"/pay", u2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// u1 pays
	w = doJSON(t, r, http.MethodPost, "/tickets/"+t1.ID+"/pay", u1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var paid TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paid))
	assert.Equal(t, "paid", paid.Status)

	// and cannot pay twice
	w = doJSON(t, r, http.MethodPost, "/tickets/"+t1.ID+"/pay", u1, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
