package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"wisdom-empire/internal/config"
	"wisdom-empire/internal/donation"
	"wisdom-empire/internal/models"
	"wisdom-empire/internal/payments"
)

const maxWebhookBytes = int64(65536)

type WebhookHandler struct {
	Service *donation.Service
	Secret  string
	Logger  *zap.Logger
}

func NewWebhookHandler(cfg config.Config, svc *donation.Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Service: svc, Secret: cfg.ProviderWebhookSecret, Logger: logger}
}

// HandlePaymentNotification accepts signed Stripe checkout events. Paid
// sessions complete their donation, expired or failed ones fail it. Events
// for unknown or already settled donations are acknowledged so Stripe stops
// retrying them.
func (h *WebhookHandler) HandlePaymentNotification(c *gin.Context) {
	if h.Secret == "" {
		failure(c, http.StatusServiceUnavailable, "Webhook not configured.")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		failure(c, http.StatusBadRequest, "Invalid payload.")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.Logger.Warn("webhook signature verification failed", zap.Error(err))
		failure(c, http.StatusBadRequest, "Invalid signature.")
		return
	}

	var next models.DonationStatus
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		next = models.StatusCompleted
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		next = models.StatusFailed
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ignored"})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.Logger.Error("failed to decode checkout session from webhook", zap.String("event_id", event.ID), zap.Error(err))
		failure(c, http.StatusBadRequest, "Invalid event payload.")
		return
	}
	donationID := sess.Metadata[payments.MetadataDonationID]
	if donationID == "" {
		donationID = sess.ClientReferenceID
	}
	log := h.Logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)),
		zap.String("donation_id", donationID), zap.String("session_id", sess.ID))

	if next == models.StatusCompleted && sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Info("checkout completed but not yet paid", zap.String("payment_status", string(sess.PaymentStatus)))
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "awaiting payment"})
		return
	}

	ctx := c.Request.Context()
	if next == models.StatusCompleted {
		_, err = h.Service.Reconcile(ctx, donationID, sess.ID)
	} else {
		_, err = h.Service.Fail(ctx, donationID)
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "status": string(next)})
	case errors.Is(err, donation.ErrNotFound), errors.Is(err, donation.ErrInvalidTransition):
		log.Warn("webhook for donation that cannot change", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ignored"})
	default:
		log.Error("failed to apply webhook", zap.Error(err))
		failure(c, http.StatusInternalServerError, "Server error.")
	}
}
