package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/movieflex/movieflex/internal/domain"
	redisrepo "github.com/movieflex/movieflex/internal/repository/redis"
	"github.com/movieflex/movieflex/internal/service"
	"github.com/movieflex/movieflex/internal/service/auth"
	"github.com/movieflex/movieflex/internal/service/booking"
	"github.com/movieflex/movieflex/internal/service/catalog"
	"github.com/movieflex/movieflex/internal/service/tickets"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth
	r.POST("/auth/register", handleRegister(svcs))
	r.POST("/auth/login", handleLogin(svcs))

	// Public catalog
	r.GET("/screenings", handleListScreenings(svcs))
	r.GET("/screenings/:id", handleGetScreening(svcs))

	authed := r.Group("", AuthMiddleware(svcs.Auth))
	{
		authed.POST("/screenings/:id/book", handleBookSeat(svcs, idem))
		authed.POST("/tickets/:id/pay", handlePayTicket(svcs))
		authed.GET("/tickets/me", handleListMyTickets(svcs))
	}

	admin := r.Group("/admin", AuthMiddleware(svcs.Auth), RequireAdmin())
	{
		admin.POST("/screenings", handleCreateScreening(svcs))
		admin.PUT("/screenings/:id", handleUpdateScreening(svcs))
		admin.DELETE("/screenings/:id", handleDeleteScreening(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Register user
// @Param    req body  RegisterRequest true "payload"
// @Success  201 {object} AuthResponse
// @Failure  400 {object} ErrorResponse
// @Router   /auth/register [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, err := svcs.Auth.Register(
			c.Request.Context(),
			req.Name,
			req.Email,
			req.Password,
			req.IsAdmin,
			req.AdminCode,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		token, _, err := svcs.Auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(u)})
	}
}

// @Summary  Login
// @Param    req body  LoginRequest true "payload"
// @Success  200 {object} AuthResponse
// @Failure  401 {object} ErrorResponse
// @Router   /auth/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		token, u, err := svcs.Auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, AuthResponse{Token: token, User: toUserResponse(u)})
	}
}

// @Summary  List screenings
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200  {array}  ScreeningResponse
// @Router   /screenings [get]
func handleListScreenings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		list, err := svcs.Catalog.ListScreenings(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]ScreeningResponse, 0, len(list))
		for i := range list {
			out = append(out, toScreeningResponse(&list[i]))
		}

		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Get screening with claimed seats
// @Param    id  path  int  true  "Screening ID"
// @Success  200  {object}  ScreeningResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /screenings/{id} [get]
func handleGetScreening(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		scr, err := svcs.Catalog.GetScreening(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		// The claimed-seat view is advisory for seat pickers; keep the
		// cache window short.
		writeJSONWithCache(c, http.StatusOK, toScreeningResponse(scr), "public, max-age=15", true)
	}
}

// @Summary  Book a seat (idempotent)
// @Param    id  path  int  true  "Screening ID"
// @Param    req body  BookSeatRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} TicketResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "seat already booked / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /screenings/{id}/book [post]
func handleBookSeat(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		screeningID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		userID, ok := requesterID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
			return
		}

		var req BookSeatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(screeningID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		ticket, err := svcs.Booking.ReserveSeat(
			c.Request.Context(),
			screeningID,
			req.Seat,
			userID,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toTicketResponse(ticket)

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Pay for a ticket
// @Param    id  path  string  true  "Ticket ID (uuid)"
// @Success  200 {object} TicketResponse
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already paid"
// @Router   /tickets/{id}/pay [post]
func handlePayTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticketID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid ticket id")
			return
		}

		userID, ok := requesterID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
			return
		}

		ticket, err := svcs.Tickets.MarkPaid(c.Request.Context(), ticketID, userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTicketResponse(ticket))
	}
}

// @Summary  List my tickets
// @Success  200 {array} TicketListItem
// @Router   /tickets/me [get]
func handleListMyTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requesterID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
			return
		}

		list, err := svcs.Tickets.ListTicketsFor(c.Request.Context(), userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]TicketListItem, 0, len(list))
		for i := range list {
			t := &list[i]
			out = append(out, TicketListItem{
				TicketResponse:  toTicketResponse(&t.Ticket),
				ScreeningTitle:  t.ScreeningTitle,
				ScreeningStarts: t.ScreeningStarts,
				PosterURL:       t.PosterURL,
			})
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create screening
// @Param    req body  CreateScreeningRequest true "payload"
// @Success  201 {object} CreateScreeningResponse
// @Router   /admin/screenings [post]
func handleCreateScreening(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateScreeningRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}

		id, err := svcs.Catalog.CreateScreening(c.Request.Context(), &domain.Screening{
			Title:      req.Title,
			PosterURL:  req.PosterURL,
			Capacity:   req.Capacity,
			StartsAt:   starts,
			Genre:      req.Genre,
			Duration:   req.Duration,
			PriceCents: req.PriceCents,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateScreeningResponse{ScreeningID: id})
	}
}

// @Summary  Update screening display fields
// @Param    id  path  int  true  "Screening ID"
// @Param    req body  UpdateScreeningRequest true "payload"
// @Success  204
// @Router   /admin/screenings/{id} [put]
func handleUpdateScreening(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req UpdateScreeningRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}

		if err := svcs.Catalog.UpdateScreening(
			c.Request.Context(),
			id,
			req.Title,
			req.PosterURL,
			starts,
			req.Genre,
			req.Duration,
			req.PriceCents,
		); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Delete screening
// @Param    id  path  int  true  "Screening ID"
// @Success  204
// @Router   /admin/screenings/{id} [delete]
func handleDeleteScreening(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteScreening(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// booking service
	case errors.Is(err, booking.ErrScreeningNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "screening not found"})
		return
	case errors.Is(err, booking.ErrSeatOutOfRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seat out of range"})
		return
	case errors.Is(err, booking.ErrSeatAlreadyBooked):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seat already booked"})
		return
	case errors.Is(err, booking.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	// tickets service
	case errors.Is(err, tickets.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
		return
	case errors.Is(err, tickets.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	case errors.Is(err, tickets.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ticket already paid"})
		return
	// catalog service
	case errors.Is(err, catalog.ErrScreeningNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "screening not found"})
		return
	case errors.Is(err, catalog.ErrInvalidCapacity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "capacity must be positive"})
		return
	// auth service
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email already registered"})
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	case errors.Is(err, auth.ErrInvalidAdminCode):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "invalid admin code"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
