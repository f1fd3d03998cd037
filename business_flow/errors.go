// Package businessflow contains the core business logic and use cases for subscription workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Subscription errors
	ErrNoChannelsSelected         = errors.New("no channels selected")
	ErrNotificationDeliveryFailed = errors.New("notification could not be delivered")
	ErrTokenNotFound              = errors.New("confirmation token not found")

	// Channel catalog errors
	ErrChannelNotFound      = errors.New("channel not found")
	ErrChannelTitleRequired = errors.New("channel title is required")

	// Admin errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("admin account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrInvalidCaptcha    = errors.New("captcha validation failed")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsNoChannelsSelected(err error) bool {
	return errors.Is(err, ErrNoChannelsSelected)
}

func IsNotificationDeliveryFailed(err error) bool {
	return errors.Is(err, ErrNotificationDeliveryFailed)
}

func IsTokenNotFound(err error) bool {
	return errors.Is(err, ErrTokenNotFound)
}

func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}

func IsChannelTitleRequired(err error) bool {
	return errors.Is(err, ErrChannelTitleRequired)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}
