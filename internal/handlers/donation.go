package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wisdom-empire/internal/certificate"
	"wisdom-empire/internal/donation"
	"wisdom-empire/internal/models"
	"wisdom-empire/internal/tiers"
)

type DonationHandler struct {
	Service *donation.Service
	Logger  *zap.Logger
}

func NewDonationHandler(svc *donation.Service, logger *zap.Logger) *DonationHandler {
	return &DonationHandler{Service: svc, Logger: logger}
}

type InitiateDonationRequest struct {
	DonationData struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Tier   string `json:"tier"`
		Amount string `json:"amount"`
	} `json:"donationData"`
	PaymentMethod string `json:"paymentMethod" binding:"required,oneof=stripe paypal crypto"`
}

type DonationIDRequest struct {
	DonationID string `json:"donationId" binding:"required"`
	SessionID  string `json:"sessionId"`
}

func (h *DonationHandler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "tiers": tiers.All()})
}

func (h *DonationHandler) InitiateDonation(c *gin.Context) {
	var req InitiateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Invalid request.")
		return
	}

	tier, ok := tiers.Lookup(req.DonationData.Tier)
	if !ok {
		failure(c, http.StatusBadRequest, "Unknown donation tier.")
		return
	}
	if req.DonationData.Amount != "" && req.DonationData.Amount != tier.Amount {
		h.Logger.Warn("client amount differs from catalog, using catalog",
			zap.String("tier", tier.Name), zap.String("client_amount", req.DonationData.Amount))
	}

	donor := models.DonorFields{Name: req.DonationData.Name, Email: req.DonationData.Email}
	res, err := h.Service.Initiate(c.Request.Context(), donor, tier, models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		donationFailure(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"paymentUrl": res.PaymentURL,
		"donationId": res.DonationID,
	})
}

func (h *DonationHandler) CompleteDonation(c *gin.Context) {
	var req DonationIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Invalid request.")
		return
	}

	rec, err := h.Service.Complete(c.Request.Context(), req.DonationID, req.SessionID)
	if err != nil {
		donationFailure(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "donation": rec})
}

func (h *DonationHandler) Certificate(c *gin.Context) {
	var req DonationIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Invalid request.")
		return
	}

	pdf, rec, err := h.Service.Certificate(c.Request.Context(), req.DonationID)
	if err != nil {
		donationFailure(c, h.Logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+certificate.Filename(*rec)+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
