package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/blob"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/repository"
	"storefront/internal/service"
)

func mapErrorToStatus(err error) int {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, blob.ErrInvalidKey),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidCart):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrAuthRequired),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, auth.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrVerificationExpired):
		return http.StatusGone
	case errors.Is(err, checkout.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody текст для клиента; детали сбоев хранилища в ответ не попадают
func errorBody(err error) gin.H {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		return gin.H{"error": "validation failed", "fields": verr.Fields}
	case errors.Is(err, checkout.ErrBackend):
		return gin.H{"error": checkout.BackendNotice}
	}
	if mapErrorToStatus(err) == http.StatusInternalServerError {
		return gin.H{"error": "internal error"}
	}
	return gin.H{"error": err.Error()}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, errorBody(err))
}
