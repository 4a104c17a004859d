package restapi

import (
	"context"
	"errors"
	"net/http"

	"paygate/internal/app/gate"
	"paygate/internal/app/presentation"
	"paygate/internal/app/service"
	"paygate/internal/domain/entity"
	"paygate/internal/infrastructure/backend"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Checkout is one gated action's payment flow with the gate it fills.
type Checkout struct {
	Session *service.CheckoutSession
	Gate    *gate.PaymentGate
}

// PremiumStatusSource reports the signed-in seeker's premium status.
type PremiumStatusSource interface {
	PremiumStatus(ctx context.Context) (bool, error)
}

// Handlers serves the checkout and gated-action endpoints.
type Handlers struct {
	checkouts map[entity.GatedAction]Checkout
	poster    *gate.JobPoster
	premium   *gate.PremiumActivator
	status    PremiumStatusSource
	// runCtx bounds attempts started over HTTP; they outlive the request.
	runCtx context.Context
	logger *zap.Logger
}

func NewHandlers(
	runCtx context.Context,
	checkouts map[entity.GatedAction]Checkout,
	poster *gate.JobPoster,
	premium *gate.PremiumActivator,
	status PremiumStatusSource,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		checkouts: checkouts,
		poster:    poster,
		premium:   premium,
		status:    status,
		runCtx:    runCtx,
		logger:    logger.Named("RestAPI"),
	}
}

// CheckoutResponse is the state of a checkout as shown to the client.
type CheckoutResponse struct {
	service.CheckoutStatus
	View         presentation.View `json:"view"`
	PaymentReady bool              `json:"payment_ready"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func (h *Handlers) checkout(c *gin.Context) (entity.GatedAction, Checkout, bool) {
	action, err := entity.ParseGatedAction(c.Param("action"))
	if err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return "", Checkout{}, false
	}
	co, ok := h.checkouts[action]
	if !ok {
		fail(c, http.StatusNotFound, "checkout not enabled for "+string(action))
		return "", Checkout{}, false
	}
	return action, co, true
}

func (h *Handlers) checkoutResponse(co Checkout) (CheckoutResponse, error) {
	view, err := co.Session.View()
	if err != nil {
		return CheckoutResponse{}, err
	}
	_, ready := co.Gate.PaymentID()
	return CheckoutResponse{CheckoutStatus: co.Session.Status(), View: view, PaymentReady: ready}, nil
}

// GetCheckout returns the state, modal view and notice of a checkout.
func (h *Handlers) GetCheckout(c *gin.Context) {
	_, co, ok := h.checkout(c)
	if !ok {
		return
	}
	resp, err := h.checkoutResponse(co)
	if err != nil {
		h.logger.Error("Failed to render checkout", zap.Error(err))
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	respond(c, http.StatusOK, resp)
}

// Pay starts a payment attempt. It answers once the attempt is running; the
// outcome is read back through GetCheckout.
func (h *Handlers) Pay(c *gin.Context) {
	action, co, ok := h.checkout(c)
	if !ok {
		return
	}
	if _, err := co.Session.Start(c.Request.Context(), h.runCtx); err != nil {
		h.logger.Info("Payment not started", zap.String("action", string(action)), zap.Error(err))
		fail(c, payStatus(err), payMessage(err, co.Session.Status().Notice))
		return
	}
	respond(c, http.StatusAccepted, co.Session.Status())
}

// Dismiss closes a finished attempt's modal.
func (h *Handlers) Dismiss(c *gin.Context) {
	_, co, ok := h.checkout(c)
	if !ok {
		return
	}
	if err := co.Session.Dismiss(); err != nil {
		if errors.Is(err, presentation.ErrNotDismissable) {
			fail(c, http.StatusConflict, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := h.checkoutResponse(co)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	respond(c, http.StatusOK, resp)
}

// CreateJob posts the job draft in the body, spending the job-posting payment.
func (h *Handlers) CreateJob(c *gin.Context) {
	if h.poster == nil {
		fail(c, http.StatusNotFound, "job posting is not enabled")
		return
	}
	var draft entity.JobDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	h.poster.SetDraft(draft)

	job, err := h.poster.Submit(c.Request.Context())
	if err != nil {
		fail(c, gateStatus(err), err.Error())
		return
	}
	respond(c, http.StatusCreated, job)
}

// ActivatePremium spends the premium payment.
func (h *Handlers) ActivatePremium(c *gin.Context) {
	if h.premium == nil {
		fail(c, http.StatusNotFound, "premium is not enabled")
		return
	}
	res, err := h.premium.Activate(c.Request.Context())
	if err != nil {
		fail(c, gateStatus(err), err.Error())
		return
	}
	respond(c, http.StatusOK, res)
}

// PremiumStatus reports whether the seeker already has premium access.
func (h *Handlers) PremiumStatus(c *gin.Context) {
	if h.status == nil {
		fail(c, http.StatusNotFound, "premium is not enabled")
		return
	}
	premium, err := h.status.PremiumStatus(c.Request.Context())
	if err != nil {
		fail(c, gateStatus(err), err.Error())
		return
	}
	respond(c, http.StatusOK, gin.H{"is_premium": premium})
}

func payStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrPaymentInFlight), errors.Is(err, service.ErrDismissRequired):
		return http.StatusConflict
	case errors.Is(err, entity.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrWalletUnavailable):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// payMessage prefers the checkout notice; refusals to start leave the previous one in place.
func payMessage(err error, notice string) string {
	if notice == "" || errors.Is(err, service.ErrPaymentInFlight) || errors.Is(err, service.ErrDismissRequired) {
		return err.Error()
	}
	return notice
}

func gateStatus(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, gate.ErrPaymentRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, gate.ErrInvalidDraft):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}
