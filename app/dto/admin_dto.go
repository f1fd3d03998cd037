// Package dto contains Data Transfer Objects for API request and response structures
package dto

// AdminLoginRequest represents an admin login attempt
type AdminLoginRequest struct {
	Username    string  `json:"username" validate:"required,max=255"`
	Password    string  `json:"password" validate:"required"`
	ChallengeID string  `json:"challenge_id" validate:"required"`
	UserAngle   float64 `json:"user_angle" validate:"omitempty"`
}

// AdminLoginResponse carries the issued admin tokens
type AdminLoginResponse struct {
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ChannelCreateRequest represents a new catalog channel
type ChannelCreateRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	SenderName  string `json:"sender_name,omitempty" validate:"omitempty,max=255"`
	SenderEmail string `json:"sender_email,omitempty" validate:"omitempty,email,max=255"`
	JumpTo      string `json:"jump_to,omitempty" validate:"omitempty,max=255"`
}

// ChannelUpdateRequest represents a partial channel update
type ChannelUpdateRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	SenderName  *string `json:"sender_name,omitempty" validate:"omitempty,max=255"`
	SenderEmail *string `json:"sender_email,omitempty" validate:"omitempty,email,max=255"`
	JumpTo      *string `json:"jump_to,omitempty" validate:"omitempty,max=255"`
}
