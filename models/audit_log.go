// Package models contains domain entities and business models for the mailing-list system
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Email        *string         `gorm:"size:255;index:idx_audit_email" json:"email,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionSubscribeRecorded   = "subscribe_recorded"
	AuditActionSubscribeFailed     = "subscribe_failed"
	AuditActionDispatchFailed      = "dispatch_failed"
	AuditActionSubscribeConfirmed  = "subscribe_confirmed"
	AuditActionConfirmFailed       = "confirm_failed"
	AuditActionUnsubscribed        = "unsubscribed"
	AuditActionUnsubscribeFailed   = "unsubscribe_failed"
	AuditActionAdminLoginSuccess   = "admin_login_success"
	AuditActionAdminLoginFailed    = "admin_login_failed"
	AuditActionChannelCreated      = "channel_created"
	AuditActionChannelUpdated      = "channel_updated"
	AuditActionRecipientsExported  = "recipients_exported"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	Email         *string
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
