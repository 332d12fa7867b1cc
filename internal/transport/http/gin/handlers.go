package httpgin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/meetly/internal/booking"
	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/entitycache"
	"github.com/kirinyoku/meetly/internal/notify"
	redisrepo "github.com/kirinyoku/meetly/internal/repository/redis"
	"github.com/kirinyoku/meetly/internal/session"
)

// @Summary  Open a session
// @Param    req  body  OpenSessionRequest  true  "payload"
// @Success  201  {object}  OpenSessionResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /sessions [post]
func handleOpenSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OpenSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		s, err := sessions.Open(c.Request.Context(), strings.TrimSpace(req.UserID))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, OpenSessionResponse{SessionID: s.ID, UserID: s.UserID})
	}
}

// @Summary  Close a session
// @Param    sid  path  string  true  "Session ID"
// @Success  204
// @Failure  401  {object}  ErrorResponse
// @Router   /sessions/{sid} [delete]
func handleCloseSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessions.Close(c.Param("sid")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List events and meetups as one collection
// @Param    type  query  string  false  "event or meetup"
// @Success  200  {array}  object
// @Router   /items [get]
func handleListItems() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		filter := queryFilter(c)

		snap := s.Items.Snapshot(s.Context(), filter)
		if !snap.Loading && snap.Err == nil {
			state := entitycache.StateIdle
			if snap.Stale {
				state = entitycache.StateStale
			}
			writeEntry(c, state, snap.Items, "60")
			return
		}

		items, err := s.Items.List(c.Request.Context(), filter)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeEntry(c, entitycache.StateIdle, items, "60")
	}
}

// @Summary  Get an event or meetup
// @Param    id  path  string  true  "Item ID"
// @Success  200  {object}  object
// @Failure  404  {object}  ErrorResponse
// @Router   /items/{id} [get]
func handleGetItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		item, found, err := currentSession(c).Items.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		if !found {
			respondErr(c, domain.ErrNotFound)
			return
		}
		writeJSONWithETag(c, http.StatusOK, item, "60")
	}
}

// @Summary  Toggle a favorite
// @Param    req  body  ToggleFavoriteRequest  true  "payload"
// @Success  200  {object}  ToggleFavoriteResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Failure  502  {object}  ErrorResponse
// @Router   /favorites/toggle [post]
func handleToggleFavorite(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ToggleFavoriteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		s := currentSession(c)
		ctx := c.Request.Context()

		if limiter != nil {
			ok, retryAfter, err := limiter.Allow(ctx, s.UserID)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !ok {
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
				return
			}
		}

		item, found, err := s.Items.Get(ctx, req.ItemID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !found {
			respondErr(c, domain.ErrNotFound)
			return
		}

		on, err := s.Favorites.Toggle(ctx, item, s.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ToggleFavoriteResponse{ItemID: item.ID(), Favorite: on})
	}
}

// @Summary  List favorites of the session user
// @Success  200  {array}  object
// @Router   /favorites [get]
func handleListFavorites() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)

		e, err := s.FavoriteItems.FetchList(c.Request.Context(), domain.Filter{session.FilterUserID: s.UserID})
		if err != nil {
			respondErr(c, err)
			return
		}
		writeEntry(c, e.State, e.Data, "0")
	}
}

// @Summary  Current booking draft
// @Success  200  {object}  booking.Draft
// @Router   /booking [get]
func handleGetBooking() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, currentSession(c).Booking.Snapshot())
	}
}

// @Summary  Cancel the booking draft
// @Success  204
// @Router   /booking [delete]
func handleClearBooking() gin.HandlerFunc {
	return func(c *gin.Context) {
		currentSession(c).Booking.Clear()
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Set event, contact and payment of the draft
// @Param    req  body  BookingDetailsRequest  true  "payload"
// @Success  200  {object}  booking.Draft
// @Router   /booking/details [put]
func handleSetBookingDetails() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookingDetailsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		w := currentSession(c).Booking
		w.SetEvent(req.EventID)
		w.SetContact(req.Contact)
		w.SetPayment(req.PaymentMethod)

		c.JSON(http.StatusOK, w.Snapshot())
	}
}

// @Summary  Select a seat
// @Param    req  body  AddSeatRequest  true  "payload"
// @Success  201  {object}  domain.SeatSelection
// @Failure  409  {object}  ErrorResponse  "seat already selected"
// @Router   /booking/seats [post]
func handleAddSeat() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddSeatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sel, err := currentSession(c).Booking.AddSeat(req.candidate())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, sel)
	}
}

// @Summary  Deselect a seat
// @Param    seat  path  string  true  "Seat id as row-column"
// @Success  200  {object}  RemoveSeatResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /booking/seats/{seat} [delete]
func handleRemoveSeat() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := currentSession(c).Booking.RemoveSeat(c.Param("seat"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, RemoveSeatResponse{Removed: n})
	}
}

// @Summary  Total price of the selected seats
// @Success  200  {object}  TotalResponse
// @Router   /booking/total [get]
func handleBookingTotal() gin.HandlerFunc {
	return func(c *gin.Context) {
		w := currentSession(c).Booking
		c.JSON(http.StatusOK, TotalResponse{Seats: len(w.Seats()), Total: w.TotalPrice()})
	}
}

// @Summary  Submit the booking (idempotent)
// @Header   201  {string}  Idempotency-Key  "echo"
// @Success  201  {object}  domain.Booking
// @Failure  409  {object}  ErrorResponse  "idempotency key in progress"
// @Failure  422  {object}  ErrorResponse  "no seats selected"
// @Failure  502  {object}  ErrorResponse
// @Router   /booking/checkout [post]
func handleCheckout(idem Idempotency) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var storageKey string
		if idem != nil && idemKey != "" {
			storageKey = redisrepo.KeyIdemCheckout(s.UserID, idemKey)

			payload, done, err := idem.Begin(ctx, storageKey)
			if err != nil {
				if errors.Is(err, redisrepo.ErrIdempotencyInProgress) {
					c.Header("Retry-After", "1")
				}
				respondErr(c, err)
				return
			}
			if done {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}
		}

		b, err := s.Booking.Submit(ctx, s.Checkout)
		if err != nil {
			if storageKey != "" {
				_ = idem.Abort(ctx, storageKey)
			}
			respondErr(c, err)
			return
		}

		if storageKey != "" {
			body, _ := json.Marshal(b)
			_ = idem.Complete(ctx, storageKey, string(body))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

func wizardState(st *booking.Stepper) WizardResponse {
	return WizardResponse{Step: st.Current().String(), Values: st.Values()}
}

// @Summary  Current step of the meetup wizard
// @Success  200  {object}  WizardResponse
// @Router   /meetups/wizard [get]
func handleGetWizard() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, wizardState(currentSession(c).Wizard))
	}
}

// @Summary  Fill the current wizard step and advance
// @Param    req  body  WizardRequest  true  "payload"
// @Success  200  {object}  WizardResponse
// @Success  201  {object}  WizardCompleteResponse  "meetup created"
// @Failure  422  {object}  ErrorResponse  "empty or invalid input"
// @Router   /meetups/wizard [post]
func handleAdvanceWizard() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WizardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		s := currentSession(c)
		st := s.Wizard

		if err := st.Set(req.Value); err != nil {
			respondErr(c, err)
			return
		}
		step, err := st.Next()
		if err != nil {
			respondErr(c, err)
			return
		}
		if step != booking.StepDone {
			c.JSON(http.StatusOK, wizardState(st))
			return
		}

		draft, err := st.Meetup(s.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}

		m, err := s.MeetupWrites.Create(c.Request.Context(), draft)
		if err != nil {
			st.Back()
			respondErr(c, err)
			return
		}
		st.Reset()

		c.JSON(http.StatusCreated, WizardCompleteResponse{Step: booking.StepDone.String(), Meetup: m})
	}
}

// @Summary  Go back one wizard step
// @Success  200  {object}  WizardResponse
// @Router   /meetups/wizard/back [post]
func handleWizardBack() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := currentSession(c).Wizard
		st.Back()
		c.JSON(http.StatusOK, wizardState(st))
	}
}

// @Summary  Drain pending notices of the session user
// @Success  200  {array}  notify.Notice
// @Router   /notifications [get]
func handleNotifications(notices *notify.Buffer) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := []notify.Notice{}
		if notices != nil {
			if got := notices.Drain(currentSession(c).UserID); got != nil {
				out = got
			}
		}
		c.JSON(http.StatusOK, out)
	}
}
