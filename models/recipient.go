// Package models contains domain entities and business models for the mailing-list system
package models

import (
	"time"
)

// Recipient is one (channel, email) subscription pair. A row starts
// unconfirmed (Active and Confirmed both false) and is activated by the
// confirmation flow when the submission token is redeemed. Confirmed rows
// are immutable history; only unconfirmed rows are ever superseded.
type Recipient struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ChannelID uint    `gorm:"not null;index:idx_recipients_channel_id;index:idx_recipients_channel_email" json:"channel_id"`
	Channel   Channel `gorm:"foreignKey:ChannelID;references:ID" json:"channel,omitempty"`
	Email     string  `gorm:"size:255;not null;index:idx_recipients_email;index:idx_recipients_channel_email" json:"email"`
	// Token is shared by all rows created in the same submission.
	Token       string     `gorm:"size:64;not null;index:idx_recipients_token" json:"-"`
	SourceIP    *string    `gorm:"type:inet" json:"source_ip,omitempty"`
	Active      *bool      `gorm:"default:false;index:idx_recipients_active" json:"active"`
	Confirmed   *bool      `gorm:"default:false" json:"confirmed"`
	ConfirmedOn *time.Time `json:"confirmed_on,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_recipients_created_at" json:"created_at"`
	AddedOn     time.Time  `gorm:"not null" json:"added_on"`
}

func (Recipient) TableName() string {
	return "recipients"
}

// RecipientFilter represents filter criteria for recipient queries
type RecipientFilter struct {
	ID            *uint
	ChannelID     *uint
	Email         *string
	Token         *string
	Active        *bool
	Confirmed     *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (r *Recipient) IsConfirmed() bool {
	return r.Confirmed != nil && *r.Confirmed
}

func (r *Recipient) IsActive() bool {
	return r.Active != nil && *r.Active
}
