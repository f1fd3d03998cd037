// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/models"
)

// RequestIDHeader is the inbound header carrying the request correlation ID;
// RequestIDKey is the context key the handlers store it under and the flows
// read it from when stamping audit rows.
const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// ClientMetadata holds all client-related information for audit logging and
// notification link assembly
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	// Host is the decoded host name of the inbound request.
	Host string `json:"host,omitempty"`
	// BaseURL is scheme://host of the inbound request.
	BaseURL string `json:"base_url,omitempty"`
	// RequestURI is the current path plus query string; the confirmation
	// token is appended to it when building the notification link.
	RequestURI string `json:"request_uri,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequest records the request environment used for link assembly
func (cm *ClientMetadata) SetRequest(host, baseURL, requestURI string) {
	cm.Host = host
	cm.BaseURL = baseURL
	cm.RequestURI = requestURI
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToRecipientDTO converts a recipient model for API responses
func ToRecipientDTO(recipient models.Recipient) dto.RecipientDTO {
	return dto.RecipientDTO{
		ID:        recipient.ID,
		ChannelID: recipient.ChannelID,
		Email:     recipient.Email,
		Active:    recipient.IsActive(),
		Confirmed: recipient.IsConfirmed(),
		AddedOn:   recipient.AddedOn,
	}
}

// ToChannelDTO converts a channel model for API responses
func ToChannelDTO(channel models.Channel) dto.ChannelDTO {
	return dto.ChannelDTO{
		ID:          channel.ID,
		Title:       channel.Title,
		SenderName:  channel.SenderName,
		SenderEmail: channel.SenderEmail,
		JumpTo:      channel.JumpTo,
	}
}
