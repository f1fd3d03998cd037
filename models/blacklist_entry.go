// Package models contains domain entities and business models for the mailing-list system
package models

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// BlacklistEntry records an explicit opt-out for one (email, channel) pair.
// The address is stored as an md5 hex digest so the plaintext email is not
// kept twice. A fresh opt-in for the pair deletes the entry.
type BlacklistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EmailHash string    `gorm:"size:32;not null;index:idx_blacklist_hash_channel" json:"email_hash"`
	ChannelID uint      `gorm:"not null;index:idx_blacklist_hash_channel" json:"channel_id"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (BlacklistEntry) TableName() string {
	return "blacklist_entries"
}

// BlacklistEntryFilter represents filter criteria for blacklist queries
type BlacklistEntryFilter struct {
	ID        *uint
	EmailHash *string
	ChannelID *uint
}

// HashEmail produces the md5 hex digest used as the blacklist key.
func HashEmail(email string) string {
	sum := md5.Sum([]byte(email))
	return hex.EncodeToString(sum[:])
}
