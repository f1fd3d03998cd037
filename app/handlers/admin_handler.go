// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/lanternmail/lantern/app/dto"
	businessflow "github.com/lanternmail/lantern/business_flow"
)

// AdminHandlerInterface defines the contract for admin handlers
type AdminHandlerInterface interface {
	InitLoginCaptcha(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	CreateChannel(c fiber.Ctx) error
	UpdateChannel(c fiber.Ctx) error
	ListChannels(c fiber.Ctx) error
	ListRecipients(c fiber.Ctx) error
	ExportRecipients(c fiber.Ctx) error
}

// AdminHandler handles admin authentication and channel management
type AdminHandler struct {
	authFlow    businessflow.AdminAuthFlow
	channelFlow businessflow.AdminChannelFlow
	validator   *validator.Validate
}

func (h *AdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authFlow businessflow.AdminAuthFlow, channelFlow businessflow.AdminChannelFlow) *AdminHandler {
	return &AdminHandler{
		authFlow:    authFlow,
		channelFlow: channelFlow,
		validator:   validator.New(),
	}
}

// InitLoginCaptcha issues a captcha challenge for the admin login form
// @Summary Admin Init Captcha
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaInitResponse} "Challenge generated"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/captcha [get]
func (h *AdminHandler) InitLoginCaptcha(c fiber.Ctx) error {
	result, err := h.authFlow.InitCaptcha(h.createRequestContext(c, "/api/v1/admin/captcha"))
	if err != nil {
		log.Println("Admin captcha generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Captcha generation failed", "CAPTCHA_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Captcha generated", result)
}

// Login handles admin authentication
// @Summary Admin Login
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Login successful"
// @Failure 401 {object} dto.APIResponse "Authentication failed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/login [post]
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
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

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.authFlow.Login(h.createRequestContext(c, "/api/v1/admin/login"), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidCaptcha(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification failed", "INVALID_CAPTCHA", nil)
		}
		if businessflow.IsAdminNotFound(err) || businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsAdminInactive(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Account is inactive", "ADMIN_INACTIVE", nil)
		}

		log.Println("Admin login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// CreateChannel creates a catalog channel
// @Summary Admin Create Channel
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.ChannelCreateRequest true "Channel data"
// @Success 201 {object} dto.APIResponse{data=dto.ChannelDTO} "Channel created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/channels [post]
func (h *AdminHandler) CreateChannel(c fiber.Ctx) error {
	var req dto.ChannelCreateRequest
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

	result, err := h.channelFlow.CreateChannel(h.createRequestContext(c, "/api/v1/admin/channels"), &req)
	if err != nil {
		if businessflow.IsChannelTitleRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Channel title is required", "TITLE_REQUIRED", nil)
		}

		log.Println("Channel creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Channel creation failed", "CHANNEL_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Channel created", result)
}

// UpdateChannel updates channel attributes
// @Summary Admin Update Channel
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Channel ID"
// @Param request body dto.ChannelUpdateRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.ChannelDTO} "Channel updated"
// @Failure 404 {object} dto.APIResponse "Channel not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/channels/{id} [put]
func (h *AdminHandler) UpdateChannel(c fiber.Ctx) error {
	channelID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || channelID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid channel ID", "INVALID_REQUEST", nil)
	}

	var req dto.ChannelUpdateRequest
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

	result, err := h.channelFlow.UpdateChannel(h.createRequestContext(c, "/api/v1/admin/channels/:id"), uint(channelID), &req)
	if err != nil {
		if businessflow.IsChannelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Channel not found", "CHANNEL_NOT_FOUND", nil)
		}

		log.Println("Channel update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Channel update failed", "CHANNEL_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Channel updated", result)
}

// ListChannels lists catalog channels
// @Summary Admin List Channels
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=[]dto.ChannelDTO} "Channels"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/channels [get]
func (h *AdminHandler) ListChannels(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	result, err := h.channelFlow.ListChannels(h.createRequestContext(c, "/api/v1/admin/channels"), limit, offset)
	if err != nil {
		log.Println("Channel listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Channel listing failed", "CHANNEL_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Channels retrieved", result)
}

// ListRecipients lists recipients of a channel
// @Summary Admin List Recipients
// @Tags Admin
// @Produce json
// @Param id path int true "Channel ID"
// @Param active query bool false "Only active recipients"
// @Param limit query int false "Page size (default 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=[]dto.RecipientDTO} "Recipients"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/channels/{id}/recipients [get]
func (h *AdminHandler) ListRecipients(c fiber.Ctx) error {
	channelID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || channelID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid channel ID", "INVALID_REQUEST", nil)
	}

	onlyActive := c.Query("active") == "true"
	limit := queryInt(c, "limit", 100)
	offset := queryInt(c, "offset", 0)

	result, err := h.channelFlow.ListRecipients(h.createRequestContext(c, "/api/v1/admin/channels/:id/recipients"), uint(channelID), onlyActive, limit, offset)
	if err != nil {
		if businessflow.IsChannelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Channel not found", "CHANNEL_NOT_FOUND", nil)
		}

		log.Println("Recipient listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient listing failed", "RECIPIENT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients retrieved", result)
}

// ExportRecipients downloads a channel's recipients as an Excel workbook
// @Summary Admin Export Recipients
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Channel ID"
// @Success 200 {string} string "Excel file"
// @Failure 404 {object} dto.APIResponse "Channel not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/channels/{id}/recipients/export [get]
func (h *AdminHandler) ExportRecipients(c fiber.Ctx) error {
	channelID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || channelID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid channel ID", "INVALID_REQUEST", nil)
	}

	filename, data, err := h.channelFlow.ExportRecipientsExcel(h.createRequestContext(c, "/api/v1/admin/channels/:id/recipients/export"), uint(channelID))
	if err != nil {
		if businessflow.IsChannelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Channel not found", "CHANNEL_NOT_FOUND", nil)
		}

		log.Println("Recipient export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate export", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// createRequestContext creates a context with timeout and request-scoped values for business logic
func (h *AdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func queryInt(c fiber.Ctx, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
