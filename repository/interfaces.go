// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/lanternmail/lantern/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ChannelRepository defines operations for the channel catalog
type ChannelRepository interface {
	Repository[models.Channel, models.ChannelFilter]
	ByIDs(ctx context.Context, ids []uint) ([]*models.Channel, error)
	// TitlesByIDs resolves channel titles; unknown IDs are absent from the result.
	TitlesByIDs(ctx context.Context, ids []uint) (map[uint]string, error)
	Update(ctx context.Context, channel *models.Channel) error
	List(ctx context.Context, limit, offset int) ([]*models.Channel, error)
}

// RecipientRepository defines operations for subscription recipients
type RecipientRepository interface {
	Repository[models.Recipient, models.RecipientFilter]
	// ListUnconfirmed returns unconfirmed rows for the email whose channel is in channelIDs.
	ListUnconfirmed(ctx context.Context, email string, channelIDs []uint) ([]*models.Recipient, error)
	Delete(ctx context.Context, recipient *models.Recipient) error
	// DeleteUnconfirmed removes all unconfirmed rows for the email/channel pairs in one statement.
	DeleteUnconfirmed(ctx context.Context, email string, channelIDs []uint) error
	DeleteActive(ctx context.Context, email string, channelIDs []uint) error
	ListByToken(ctx context.Context, token string) ([]*models.Recipient, error)
	// ConfirmByToken activates every unconfirmed row bearing the token and
	// returns the number of rows affected.
	ConfirmByToken(ctx context.Context, token string, confirmedOn time.Time) (int64, error)
	ListByChannel(ctx context.Context, channelID uint, onlyActive bool, limit, offset int) ([]*models.Recipient, error)
}

// BlacklistRepository defines operations for opt-out entries
type BlacklistRepository interface {
	Repository[models.BlacklistEntry, models.BlacklistEntryFilter]
	ByHashAndChannel(ctx context.Context, emailHash string, channelID uint) (*models.BlacklistEntry, error)
	Delete(ctx context.Context, entry *models.BlacklistEntry) error
	DeleteByHashAndChannel(ctx context.Context, emailHash string, channelID uint) error
}

// AdminRepository defines operations for admin users
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint, when time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByEmail(ctx context.Context, email string, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
