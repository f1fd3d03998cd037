// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/app/middleware"
	"github.com/lanternmail/lantern/app/services"
	businessflow "github.com/lanternmail/lantern/business_flow"
)

// SubscriptionHandlerInterface defines the contract for subscription handlers
type SubscriptionHandlerInterface interface {
	Subscribe(c fiber.Ctx) error
	Confirm(c fiber.Ctx) error
	Unsubscribe(c fiber.Ctx) error
	InitCaptcha(c fiber.Ctx) error
}

// SubscriptionHandler handles the public double opt-in endpoints
type SubscriptionHandler struct {
	subscribeFlow businessflow.SubscribeFlow
	confirmFlow   businessflow.ConfirmFlow
	optOutFlow    businessflow.OptOutFlow
	captchaSvc    services.CaptchaService
	validator     *validator.Validate
}

func (h *SubscriptionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SubscriptionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	subscribeFlow businessflow.SubscribeFlow,
	confirmFlow businessflow.ConfirmFlow,
	optOutFlow businessflow.OptOutFlow,
	captchaSvc services.CaptchaService,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscribeFlow: subscribeFlow,
		confirmFlow:   confirmFlow,
		optOutFlow:    optOutFlow,
		captchaSvc:    captchaSvc,
		validator:     validator.New(),
	}
}

// Subscribe handles a double opt-in subscription submission
// @Summary Subscribe to channels
// @Description Record a pending subscription for one or more channels and dispatch the activation message
// @Tags Subscription
// @Accept json
// @Produce json
// @Param request body dto.SubscribeRequest true "Subscription form data"
// @Success 200 {object} dto.APIResponse{data=dto.SubscribeResponse} "Subscription recorded"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/subscribe [post]
func (h *SubscriptionHandler) Subscribe(c fiber.Ctx) error {
	var req dto.SubscribeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Captcha gate, enforced when a captcha service is configured
	if h.captchaSvc != nil && !h.captchaSvc.VerifyRotate(context.Background(), req.ChallengeID, req.UserAngle) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification failed", "INVALID_CAPTCHA", nil)
	}

	metadata := h.clientMetadata(c)

	result, err := h.subscribeFlow.Subscribe(h.createRequestContext(c, "/api/v1/subscribe"), &req, metadata)
	if err != nil {
		if businessflow.IsNoChannelsSelected(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No valid channels selected", "VALIDATION_ERROR", nil)
		}

		log.Println("Subscribe failed", err)
		middleware.RecordSubscriptionEvent("subscribe", "error")
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Subscription failed", "SUBSCRIBE_FAILED", nil)
	}

	if result.NotificationSent {
		middleware.RecordSubscriptionEvent("subscribe", "recorded")
	} else {
		middleware.RecordSubscriptionEvent("subscribe", "notification_failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Confirm handles activation link redemption
// @Summary Confirm subscription
// @Description Redeem a confirmation token and activate the pending subscription
// @Tags Subscription
// @Produce json
// @Param token query string true "Confirmation token"
// @Success 200 {object} dto.APIResponse{data=dto.ConfirmResponse} "Subscription confirmed"
// @Failure 404 {object} dto.APIResponse "Token not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/confirm [get]
func (h *SubscriptionHandler) Confirm(c fiber.Ctx) error {
	req := dto.ConfirmRequest{Token: c.Query("token")}
	if req.Token == "" {
		// token may also arrive in a JSON body from the confirmation page
		if err := c.Bind().JSON(&req); err != nil || req.Token == "" {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing confirmation token", "INVALID_REQUEST", nil)
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid confirmation token", "VALIDATION_ERROR", nil)
	}

	metadata := h.clientMetadata(c)

	result, err := h.confirmFlow.Confirm(h.createRequestContext(c, "/api/v1/confirm"), &req, metadata)
	if err != nil {
		if businessflow.IsTokenNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Confirmation token not found or already used", "TOKEN_NOT_FOUND", nil)
		}

		log.Println("Confirmation failed", err)
		middleware.RecordSubscriptionEvent("confirm", "error")
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Confirmation failed", "CONFIRM_FAILED", nil)
	}

	middleware.RecordSubscriptionEvent("confirm", "confirmed")
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Unsubscribe handles an opt-out submission
// @Summary Unsubscribe from channels
// @Description Remove a recipient from the selected channels and blacklist the address
// @Tags Subscription
// @Accept json
// @Produce json
// @Param request body dto.UnsubscribeRequest true "Opt-out form data"
// @Success 200 {object} dto.APIResponse{data=dto.UnsubscribeResponse} "Unsubscribed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/unsubscribe [post]
func (h *SubscriptionHandler) Unsubscribe(c fiber.Ctx) error {
	var req dto.UnsubscribeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := h.clientMetadata(c)

	result, err := h.optOutFlow.Unsubscribe(h.createRequestContext(c, "/api/v1/unsubscribe"), &req, metadata)
	if err != nil {
		if businessflow.IsNoChannelsSelected(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No valid channels selected", "VALIDATION_ERROR", nil)
		}

		log.Println("Unsubscribe failed", err)
		middleware.RecordSubscriptionEvent("unsubscribe", "error")
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Unsubscribe failed", "UNSUBSCRIBE_FAILED", nil)
	}

	middleware.RecordSubscriptionEvent("unsubscribe", "removed")
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// InitCaptcha issues a rotate captcha challenge for the subscription form
// @Summary Init captcha
// @Description Generate a rotate captcha challenge
// @Tags Subscription
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaInitResponse} "Challenge generated"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/captcha [get]
func (h *SubscriptionHandler) InitCaptcha(c fiber.Ctx) error {
	if h.captchaSvc == nil {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Captcha not enabled", "CAPTCHA_DISABLED", nil)
	}

	ch, err := h.captchaSvc.GenerateRotate(h.createRequestContext(c, "/api/v1/captcha"))
	if err != nil {
		log.Println("Captcha generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Captcha generation failed", "CAPTCHA_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Captcha generated", dto.CaptchaInitResponse{
		ChallengeID:       ch.ID,
		MasterImageBase64: ch.MasterImageBase64,
		ThumbImageBase64:  ch.ThumbImageBase64,
	})
}

// clientMetadata captures client and request environment for audit logging
// and notification link assembly
func (h *SubscriptionHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequest(c.Hostname(), c.BaseURL(), c.OriginalURL())
	metadata.SetRequestID(c.Get(businessflow.RequestIDHeader))
	return metadata
}

// createRequestContext creates a context with timeout and request-scoped values for business logic
func (h *SubscriptionHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get(businessflow.RequestIDHeader))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "timeout", timeout)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}

// getValidationErrorMessage returns user-friendly validation error messages
func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must have at least " + err.Param() + " entries"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "gt":
		return err.Field() + " must be greater than " + err.Param()
	default:
		return err.Field() + " is invalid"
	}
}
