package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/meetly/internal/booking"
	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/repository"
	redisrepo "github.com/kirinyoku/meetly/internal/repository/redis"
	"github.com/kirinyoku/meetly/internal/session"
)

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	status, body := mapErr(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func abortErr(c *gin.Context, err error) {
	status, body := mapErr(err)
	c.AbortWithStatusJSON(status, body)
}

func mapErr(err error) (int, ErrorResponse) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Message, Field: verr.Field}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: "sign in required"}
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized, ErrorResponse{Error: "session not found"}
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.Is(err, booking.ErrSeatAlreadySelected):
		return http.StatusConflict, ErrorResponse{Error: "seat already selected"}
	case errors.Is(err, booking.ErrWizardComplete):
		return http.StatusConflict, ErrorResponse{Error: "wizard already complete"}
	case errors.Is(err, redisrepo.ErrIdempotencyInProgress):
		return http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: "conflict"}
	case errors.Is(err, booking.ErrInvalidSeatID),
		errors.Is(err, booking.ErrInvalidSeat),
		errors.Is(err, repository.ErrInvalid):
		return http.StatusBadRequest, ErrorResponse{Error: rootMessage(err)}
	case errors.Is(err, domain.ErrRemoteFailure):
		return http.StatusBadGateway, ErrorResponse{Error: "remote store unavailable"}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
