// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// SubscribeRequest represents the subscription form data
type SubscribeRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	ChannelIDs []uint `json:"channel_ids" validate:"required,min=1,dive,gt=0"`

	// Captcha gate, verified by the handler before the flow is invoked
	ChallengeID string  `json:"challenge_id,omitempty" validate:"omitempty"`
	UserAngle   float64 `json:"user_angle,omitempty" validate:"omitempty"`
}

// SubscribeResponse represents the outcome of a recorded submission
type SubscribeResponse struct {
	Message string `json:"message"`
	// Recorded is the user-facing success criterion: the pending
	// subscription rows were durably persisted.
	Recorded bool `json:"recorded"`
	// NotificationSent is false when the confirmation message could not be
	// dispatched; the subscription is still recorded.
	NotificationSent bool     `json:"notification_sent"`
	Channels         []string `json:"channels"`
}

// ConfirmRequest represents a confirmation token redemption
type ConfirmRequest struct {
	Token string `json:"token" validate:"required,max=64"`
}

// ConfirmResponse represents the outcome of a confirmation
type ConfirmResponse struct {
	Message  string   `json:"message"`
	Email    string   `json:"email"`
	Channels []string `json:"channels"`
}

// UnsubscribeRequest represents an opt-out submission
type UnsubscribeRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	ChannelIDs []uint `json:"channel_ids" validate:"required,min=1,dive,gt=0"`
}

// UnsubscribeResponse represents the outcome of an opt-out
type UnsubscribeResponse struct {
	Message  string   `json:"message"`
	Channels []string `json:"channels"`
}

// RecipientDTO represents a recipient row in API responses
type RecipientDTO struct {
	ID        uint      `json:"id"`
	ChannelID uint      `json:"channel_id"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Confirmed bool      `json:"confirmed"`
	AddedOn   time.Time `json:"added_on"`
}

// ChannelDTO represents a channel in API responses
type ChannelDTO struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	SenderName  string `json:"sender_name,omitempty"`
	SenderEmail string `json:"sender_email,omitempty"`
	JumpTo      string `json:"jump_to,omitempty"`
}

// CaptchaInitResponse carries a generated captcha challenge
type CaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}
