package tickets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/notify"
	"github.com/movieflex/movieflex/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*domain.Ticket
}

func newFakeTicketStore(tickets ...*domain.Ticket) *fakeTicketStore {
	m := make(map[uuid.UUID]*domain.Ticket, len(tickets))
	for _, t := range tickets {
		m[t.ID] = t
	}
	return &fakeTicketStore{tickets: m}
}

func (f *fakeTicketStore) Get(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTicketStore) MarkPaid(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[id]
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

func (f *fakeTicketStore) ListByOwner(_ context.Context, ownerID int64) ([]domain.TicketWithScreening, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.TicketWithScreening
	for _, t := range f.tickets {
		if t.OwnerID == ownerID {
			out = append(out, domain.TicketWithScreening{Ticket: *t})
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[int64]*domain.User
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakeScreenings struct {
	title string
}

func (f *fakeScreenings) Get(_ context.Context, _ int64) (*domain.Screening, error) {
	return &domain.Screening{Title: f.title}, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	failing  bool
	sent     []notify.Notification
	notified chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{notified: make(chan struct{}, 16)}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		f.notified <- struct{}{}
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, n)
	f.notified <- struct{}{}
	return nil
}

func (f *fakeDispatcher) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func reservedTicket(owner int64) *domain.Ticket {
	return &domain.Ticket{
		ID:          uuid.New(),
		ScreeningID: 1,
		SeatNumber:  7,
		OwnerID:     owner,
		Status:      domain.TicketReserved,
		CreatedAt:   time.Now(),
	}
}

func waitNotified(t *testing.T, d *fakeDispatcher) {
	t.Helper()
	select {
	case <-d.notified:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not dispatched")
	}
}

func TestMarkPaid_Success(t *testing.T) {
	ticket := reservedTicket(42)
	store := newFakeTicketStore(ticket)
	users := &fakeUsers{users: map[int64]*domain.User{42: {ID: 42, Name: "Ada", Email: "ada@example.com"}}}
	dispatcher := newFakeDispatcher()
	svc := New(store, users, &fakeScreenings{title: "Alien"}, dispatcher, nil)

	updated, err := svc.MarkPaid(context.Background(), ticket.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPaid, updated.Status)
	require.NotNil(t, updated.PaidAt)

	waitNotified(t, dispatcher)
	require.Equal(t, 1, dispatcher.sentCount())

	n := dispatcher.sent[0]
	assert.Equal(t, "ada@example.com", n.Recipient)
	assert.Contains(t, n.Subject, "Alien")
	assert.Contains(t, n.Body, "Seat: 7")
}

func TestMarkPaid_NotFound(t *testing.T) {
	svc := New(newFakeTicketStore(), &fakeUsers{}, nil, nil, nil)

	_, err := svc.MarkPaid(context.Background(), uuid.New(), 42)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestMarkPaid_Forbidden(t *testing.T) {
	ticket := reservedTicket(42)
	store := newFakeTicketStore(ticket)
	svc := New(store, &fakeUsers{}, nil, nil, nil)

	_, err := svc.MarkPaid(context.Background(), ticket.ID, 99)
	assert.ErrorIs(t, err, ErrForbidden)

	// The status is untouched.
	got, err := store.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketReserved, got.Status)
}

func TestMarkPaid_AlreadyPaid(t *testing.T) {
	ticket := reservedTicket(42)
	store := newFakeTicketStore(ticket)
	users := &fakeUsers{users: map[int64]*domain.User{42: {ID: 42, Email: "a@b.c"}}}
	dispatcher := newFakeDispatcher()
	svc := New(store, users, nil, dispatcher, nil)

	_, err := svc.MarkPaid(context.Background(), ticket.ID, 42)
	require.NoError(t, err)

	_, err = svc.MarkPaid(context.Background(), ticket.ID, 42)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	// Only the winning transition notifies.
	waitNotified(t, dispatcher)
	assert.Equal(t, 1, dispatcher.sentCount())
}

// Among concurrent payments exactly one transition wins.
func TestMarkPaid_Concurrent(t *testing.T) {
	ticket := reservedTicket(42)
	store := newFakeTicketStore(ticket)
	users := &fakeUsers{users: map[int64]*domain.User{42: {ID: 42, Email: "a@b.c"}}}
	dispatcher := newFakeDispatcher()
	svc := New(store, users, nil, dispatcher, nil)

	const workers = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.MarkPaid(context.Background(), ticket.ID, 42)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyPaid):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	waitNotified(t, dispatcher)
	assert.Equal(t, 1, dispatcher.sentCount())
}

// A dispatch failure is logged and swallowed; payment still succeeds.
func TestMarkPaid_DispatchFailureDoesNotRevert(t *testing.T) {
	ticket := reservedTicket(42)
	store := newFakeTicketStore(ticket)
	users := &fakeUsers{users: map[int64]*domain.User{42: {ID: 42, Email: "a@b.c"}}}
	dispatcher := newFakeDispatcher()
	dispatcher.failing = true
	svc := New(store, users, nil, dispatcher, nil)

	updated, err := svc.MarkPaid(context.Background(), ticket.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPaid, updated.Status)

	waitNotified(t, dispatcher)

	got, err := store.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPaid, got.Status)
}

func TestListTicketsFor(t *testing.T) {
	t1 := reservedTicket(42)
	t2 := reservedTicket(42)
	other := reservedTicket(99)
	store := newFakeTicketStore(t1, t2, other)
	svc := New(store, &fakeUsers{}, nil, nil, nil)

	out, err := svc.ListTicketsFor(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = svc.ListTicketsFor(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, out)
}
