// Package businessflow contains the core business logic and use cases for subscription workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/repository"
	"github.com/lanternmail/lantern/utils"
	"gorm.io/gorm"
)

// OptOutFlow handles unsubscribe requests
type OptOutFlow interface {
	Unsubscribe(ctx context.Context, req *dto.UnsubscribeRequest, metadata *ClientMetadata) (*dto.UnsubscribeResponse, error)
}

// OptOutFlowImpl implements the opt-out business flow
type OptOutFlowImpl struct {
	channelRepo   repository.ChannelRepository
	recipientRepo repository.RecipientRepository
	blacklistRepo repository.BlacklistRepository
	auditRepo     repository.AuditLogRepository
	db            *gorm.DB
}

// NewOptOutFlow creates a new opt-out flow instance
func NewOptOutFlow(
	channelRepo repository.ChannelRepository,
	recipientRepo repository.RecipientRepository,
	blacklistRepo repository.BlacklistRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) OptOutFlow {
	return &OptOutFlowImpl{
		channelRepo:   channelRepo,
		recipientRepo: recipientRepo,
		blacklistRepo: blacklistRepo,
		auditRepo:     auditRepo,
		db:            db,
	}
}

// Unsubscribe removes the address from the requested channels and records a
// blacklist entry per channel so bulk imports skip the address until a fresh
// opt-in revokes the entry. Stale unconfirmed rows for the pairs are removed
// as well; confirmed history stays untouched.
func (f *OptOutFlowImpl) Unsubscribe(ctx context.Context, req *dto.UnsubscribeRequest, metadata *ClientMetadata) (*dto.UnsubscribeResponse, error) {
	email := utils.NormalizeEmail(req.Email)

	channels, err := f.channelRepo.ByIDs(ctx, req.ChannelIDs)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_LOOKUP_FAILED", "Failed to resolve channels", err)
	}
	if len(channels) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No channels selected", ErrNoChannelsSelected)
	}

	channelIDs := make([]uint, 0, len(channels))
	channelTitles := make([]string, 0, len(channels))
	for _, channel := range channels {
		channelIDs = append(channelIDs, channel.ID)
		channelTitles = append(channelTitles, channel.Title)
	}

	lockEmail(email)
	defer unlockEmail(email)

	emailHash := models.HashEmail(email)

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.recipientRepo.DeleteActive(txCtx, email, channelIDs); err != nil {
			return err
		}
		if err := f.recipientRepo.DeleteUnconfirmed(txCtx, email, channelIDs); err != nil {
			return err
		}

		for _, channelID := range channelIDs {
			existing, err := f.blacklistRepo.ByHashAndChannel(txCtx, emailHash, channelID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			entry := &models.BlacklistEntry{
				EmailHash: emailHash,
				ChannelID: channelID,
			}
			if err := f.blacklistRepo.Save(txCtx, entry); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Unsubscribe failed: %s", err.Error())
		_ = f.createAuditLog(ctx, email, models.AuditActionUnsubscribeFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("UNSUBSCRIBE_FAILED", "Unsubscribe could not be recorded", err)
	}

	msg := fmt.Sprintf("Unsubscribed from %d channel(s)", len(channelIDs))
	_ = f.createAuditLog(ctx, email, models.AuditActionUnsubscribed, msg, true, nil, metadata)

	return &dto.UnsubscribeResponse{
		Message:  "You have been unsubscribed.",
		Channels: channelTitles,
	}, nil
}

func (f *OptOutFlowImpl) createAuditLog(ctx context.Context, email, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	audit := &models.AuditLog{
		Email:        &email,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		ErrorMessage: errorMsg,
	}

	if metadata != nil {
		if metadata.IPAddress != "" {
			audit.IPAddress = utils.ToPtr(metadata.IPAddress)
		}
		if metadata.UserAgent != "" {
			audit.UserAgent = utils.ToPtr(metadata.UserAgent)
		}
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	return f.auditRepo.Save(ctx, audit)
}
