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

// ConfirmFlow handles redemption of confirmation tokens
type ConfirmFlow interface {
	Confirm(ctx context.Context, req *dto.ConfirmRequest, metadata *ClientMetadata) (*dto.ConfirmResponse, error)
}

// ConfirmFlowImpl implements the confirmation business flow
type ConfirmFlowImpl struct {
	recipientRepo repository.RecipientRepository
	channelRepo   repository.ChannelRepository
	auditRepo     repository.AuditLogRepository
	db            *gorm.DB
}

// NewConfirmFlow creates a new confirmation flow instance
func NewConfirmFlow(
	recipientRepo repository.RecipientRepository,
	channelRepo repository.ChannelRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ConfirmFlow {
	return &ConfirmFlowImpl{
		recipientRepo: recipientRepo,
		channelRepo:   channelRepo,
		auditRepo:     auditRepo,
		db:            db,
	}
}

// Confirm activates every pending subscription created by the submission that
// issued the token. A token whose rows are all already confirmed (or that was
// never issued) is rejected, so a confirmation link works exactly once.
func (f *ConfirmFlowImpl) Confirm(ctx context.Context, req *dto.ConfirmRequest, metadata *ClientMetadata) (*dto.ConfirmResponse, error) {
	if req == nil || req.Token == "" {
		return nil, NewBusinessError("CONFIRM_VALIDATION_FAILED", "Confirmation token missing", ErrTokenNotFound)
	}

	var recipients []*models.Recipient
	now := utils.UTCNow()

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		affected, err := f.recipientRepo.ConfirmByToken(txCtx, req.Token, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrTokenNotFound
		}

		recipients, err = f.recipientRepo.ListByToken(txCtx, req.Token)
		return err
	})

	if err != nil {
		email := ""
		if len(recipients) > 0 {
			email = recipients[0].Email
		}
		errMsg := fmt.Sprintf("Confirmation failed: %s", err.Error())
		_ = f.createAuditLog(ctx, email, models.AuditActionConfirmFailed, errMsg, false, &errMsg, metadata)

		if IsTokenNotFound(err) {
			return nil, NewBusinessError("TOKEN_NOT_FOUND", "Confirmation token not found", ErrTokenNotFound)
		}
		return nil, NewBusinessError("CONFIRM_FAILED", "Confirmation could not be recorded", err)
	}

	email := recipients[0].Email
	channelIDs := make([]uint, 0, len(recipients))
	for _, r := range recipients {
		channelIDs = append(channelIDs, r.ChannelID)
	}
	titles, err := f.channelRepo.TitlesByIDs(ctx, channelIDs)
	if err != nil {
		titles = nil
	}
	channelTitles := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		if title, ok := titles[id]; ok {
			channelTitles = append(channelTitles, title)
		}
	}

	msg := fmt.Sprintf("Subscription confirmed for %d channel(s)", len(recipients))
	_ = f.createAuditLog(ctx, email, models.AuditActionSubscribeConfirmed, msg, true, nil, metadata)

	return &dto.ConfirmResponse{
		Message:  "Your subscription has been activated.",
		Email:    email,
		Channels: channelTitles,
	}, nil
}

func (f *ConfirmFlowImpl) createAuditLog(ctx context.Context, email, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	audit := &models.AuditLog{
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		ErrorMessage: errorMsg,
	}
	if email != "" {
		audit.Email = &email
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
