package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wisdom-empire/internal/donation"
)

// failure writes the uniform {success:false, error} body.
func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// donationFailure maps a donation error onto a status and a fixed message.
// Error details stay in the server log.
func donationFailure(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, donation.ErrValidation):
		failure(c, http.StatusBadRequest, "Please provide your name and email.")
	case errors.Is(err, donation.ErrInvalidAmount):
		logger.Error("tier catalog amount is invalid", zap.Error(err))
		failure(c, http.StatusInternalServerError, "This donation tier is unavailable.")
	case errors.Is(err, donation.ErrInitiation):
		failure(c, http.StatusBadGateway, "We could not start your payment. Please try again.")
	case errors.Is(err, donation.ErrNotFound):
		failure(c, http.StatusNotFound, "Donation not found.")
	case errors.Is(err, donation.ErrNotCompleted):
		failure(c, http.StatusConflict, "Please complete your payment before requesting a certificate.")
	case errors.Is(err, donation.ErrPaymentUnverified):
		failure(c, http.StatusPaymentRequired, "Your payment has not been confirmed yet.")
	case errors.Is(err, donation.ErrInvalidTransition):
		failure(c, http.StatusConflict, "This donation can no longer be changed.")
	default:
		logger.Error("unexpected donation error", zap.Error(err))
		failure(c, http.StatusInternalServerError, "Server error.")
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination reads ?page= and ?page_size= (1-based), clamping bad values.
func pagination(c *gin.Context) (page, size int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.Query("page_size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
