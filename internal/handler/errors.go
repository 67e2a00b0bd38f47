package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/middleware"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/response"
	"go.uber.org/zap"
)

// handleError converts domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		state      *domain.InvalidStateError
		capacity   *domain.CapacityError
		failed     *domain.PaymentFailedError
		duplicate  *domain.DuplicateTransactionError
	)

	if ce, ok := domain.AsCouponError(err); ok {
		response.Error(c, http.StatusUnprocessableEntity, "COUPON_"+string(ce.Reason), ce.Reason.Message(), ce.Code)
		return
	}

	switch {
	case errors.As(err, &validation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), validation.Field)
	case errors.As(err, &notFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), "")
	case errors.As(err, &state):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error(), state.Current)
	case errors.As(err, &capacity):
		response.Error(c, http.StatusConflict, "NO_AVAILABILITY", err.Error(), "")
	case errors.Is(err, domain.ErrSessionExpired):
		response.Error(c, http.StatusGone, "SESSION_EXPIRED", err.Error(), "")
	case errors.Is(err, domain.ErrAlreadyVerified):
		response.Error(c, http.StatusConflict, "ALREADY_VERIFIED", err.Error(), "")
	case errors.As(err, &duplicate):
		response.Error(c, http.StatusConflict, "TRANSACTION_ALREADY_USED", err.Error(), duplicate.ExternalTransactionID)
	case errors.As(err, &failed):
		response.Error(c, http.StatusPaymentRequired, "PAYMENT_FAILED", err.Error(), failed.Reason)
	default:
		logger.Get().Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
		response.InternalError(c)
	}
}

// bindError reports a malformed request body
func bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", err.Error())
}

// bindOptionalJSON binds a body the client may omit. It writes 400 and
// returns false for anything but an empty body.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return false
	}
	return true
}

// currentUser returns the caller or writes 401
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
	}
	return userID, ok
}
