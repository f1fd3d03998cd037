// Package models contains domain entities and business models for the mailing-list system
package models

import (
	"time"
)

// Channel is a named mailing list a visitor can join independently of others.
type Channel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	SenderName  string    `gorm:"size:255" json:"sender_name"`
	SenderEmail string    `gorm:"size:255" json:"sender_email"`
	// JumpTo holds the path subscribers are redirected to after confirming.
	JumpTo    string    `gorm:"size:255" json:"jump_to"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_channels_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}

// ChannelFilter represents filter criteria for channel queries
type ChannelFilter struct {
	ID            *uint
	Title         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
