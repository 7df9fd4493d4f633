package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wisdom-empire/internal/donation"
	"wisdom-empire/internal/ledger"
	"wisdom-empire/internal/middleware"
	"wisdom-empire/internal/models"
)

// AdminHandler serves manual reconciliation: listing donations by status and
// settling paypal, crypto or orphaned pending records by hand.
type AdminHandler struct {
	Ledger  *ledger.Ledger
	Service *donation.Service
	Logger  *zap.Logger
}

func NewAdminHandler(l *ledger.Ledger, svc *donation.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Ledger: l, Service: svc, Logger: logger}
}

func (h *AdminHandler) ListDonations(c *gin.Context) {
	status := models.DonationStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		failure(c, http.StatusBadRequest, "Unknown status filter.")
		return
	}
	page, size := pagination(c)

	records, total, err := h.Ledger.List(c.Request.Context(), status, size, (page-1)*size)
	if err != nil {
		h.Logger.Error("failed to list donations", zap.Error(err))
		failure(c, http.StatusInternalServerError, "Could not fetch donations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"donations": records,
		"page":      page,
		"page_size": size,
		"total":     total,
	})
}

func (h *AdminHandler) CompleteDonation(c *gin.Context) {
	h.settle(c, "complete", func(ctx context.Context, id string) (*models.DonationRecord, error) {
		return h.Service.Reconcile(ctx, id, "")
	})
}

func (h *AdminHandler) FailDonation(c *gin.Context) {
	h.settle(c, "fail", h.Service.Fail)
}

func (h *AdminHandler) settle(c *gin.Context, action string, apply func(context.Context, string) (*models.DonationRecord, error)) {
	id := c.Param("id")
	rec, err := apply(c.Request.Context(), id)
	if err != nil {
		donationFailure(c, h.Logger, err)
		return
	}

	adminID, _ := c.Get(middleware.ContextUserID)
	h.Logger.Info("donation reconciled by admin",
		zap.String("donation_id", id), zap.String("action", action), zap.Any("admin_id", adminID))
	c.JSON(http.StatusOK, gin.H{"success": true, "donation": rec})
}
