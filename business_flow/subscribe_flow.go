// Package businessflow contains the core business logic and use cases for subscription workflows
package businessflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/app/services"
	"github.com/lanternmail/lantern/config"
	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/repository"
	"github.com/lanternmail/lantern/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SubscribeFlow handles the double opt-in subscription business logic
type SubscribeFlow interface {
	Subscribe(ctx context.Context, req *dto.SubscribeRequest, metadata *ClientMetadata) (*dto.SubscribeResponse, error)
}

// SubscribeFlowImpl implements the subscription business flow
type SubscribeFlowImpl struct {
	channelRepo     repository.ChannelRepository
	recipientRepo   repository.RecipientRepository
	blacklistRepo   repository.BlacklistRepository
	auditRepo       repository.AuditLogRepository
	dispatcher      services.NotificationDispatcher
	notificationCfg *config.NotificationConfig
	rc              *redis.Client
	db              *gorm.DB
}

// NewSubscribeFlow creates a new subscription flow instance
func NewSubscribeFlow(
	channelRepo repository.ChannelRepository,
	recipientRepo repository.RecipientRepository,
	blacklistRepo repository.BlacklistRepository,
	auditRepo repository.AuditLogRepository,
	dispatcher services.NotificationDispatcher,
	notificationCfg *config.NotificationConfig,
	rc *redis.Client,
	db *gorm.DB,
) SubscribeFlow {
	return &SubscribeFlowImpl{
		channelRepo:     channelRepo,
		recipientRepo:   recipientRepo,
		blacklistRepo:   blacklistRepo,
		auditRepo:       auditRepo,
		dispatcher:      dispatcher,
		notificationCfg: notificationCfg,
		rc:              rc,
		db:              db,
	}
}

// Subscribe records a pending subscription for every requested channel and
// triggers the confirmation notification.
//
// Unknown channel IDs are dropped rather than rejected; only an empty set
// after filtering is a validation failure. Stale unconfirmed rows for the
// same (email, channel) pairs are superseded: deleted and replaced by fresh
// rows sharing one newly issued token, so at most one unconfirmed row per
// pair ever exists and an abandoned token can never be replayed. A prior
// opt-out for a pair is revoked, since a fresh opt-in supersedes it.
//
// The store writes run in one transaction under a per-email lock. The
// dispatch runs after commit: a delivery failure never rolls the recorded
// subscription back and is reported through the response instead.
func (s *SubscribeFlowImpl) Subscribe(ctx context.Context, req *dto.SubscribeRequest, metadata *ClientMetadata) (*dto.SubscribeResponse, error) {
	email := utils.NormalizeEmail(req.Email)

	channelIDs, channelTitles, err := s.resolveChannels(ctx, req.ChannelIDs)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_LOOKUP_FAILED", "Failed to resolve channels", err)
	}
	if len(channelIDs) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No channels selected", ErrNoChannelsSelected)
	}

	lockEmail(email)
	defer unlockEmail(email)

	token := GenerateToken()
	now := utils.UTCNow()

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Remove old subscriptions that have not been confirmed yet
		if err := s.recipientRepo.DeleteUnconfirmed(txCtx, email, channelIDs); err != nil {
			return err
		}

		recipients := make([]*models.Recipient, 0, len(channelIDs))
		for _, channelID := range channelIDs {
			recipient := &models.Recipient{
				ChannelID: channelID,
				Email:     email,
				Token:     token,
				Active:    utils.ToPtr(false),
				Confirmed: utils.ToPtr(false),
				CreatedAt: now,
				AddedOn:   now,
			}
			if metadata != nil && metadata.IPAddress != "" {
				recipient.SourceIP = utils.ToPtr(metadata.IPAddress)
			}
			recipients = append(recipients, recipient)
		}
		if err := s.recipientRepo.SaveBatch(txCtx, recipients); err != nil {
			return err
		}

		// A new opt-in revokes a prior opt-out for each channel
		emailHash := models.HashEmail(email)
		for _, channelID := range channelIDs {
			if err := s.blacklistRepo.DeleteByHashAndChannel(txCtx, emailHash, channelID); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Subscription failed: %s", err.Error())
		_ = s.createAuditLog(ctx, email, models.AuditActionSubscribeFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SUBSCRIBE_FAILED", "Subscription could not be recorded", err)
	}

	msg := fmt.Sprintf("Subscription recorded for %d channel(s)", len(channelIDs))
	_ = s.createAuditLog(ctx, email, models.AuditActionSubscribeRecorded, msg, true, nil, metadata)

	// Dispatch outside the transaction: the subscriber's intent is already
	// durably captured, delivery has its own retry layer.
	notificationSent := true
	payload := BuildNotificationPayload(token, email, channelTitles, metadata, s.notificationCfg)
	if err := s.dispatcher.Send(ctx, s.notificationCfg.TemplateID, payload); err != nil {
		notificationSent = false
		deliveryErr := fmt.Errorf("%w: %v", ErrNotificationDeliveryFailed, err)
		errMsg := deliveryErr.Error()
		_ = s.createAuditLog(ctx, email, models.AuditActionDispatchFailed, errMsg, false, &errMsg, metadata)
	}

	return &dto.SubscribeResponse{
		Message:          "Please check your email to confirm your subscription.",
		Recorded:         true,
		NotificationSent: notificationSent,
		Channels:         channelTitles,
	}, nil
}

// resolveChannels filters the requested IDs through the channel catalog and
// returns the known IDs with their titles, both in request order. Titles are
// served from the redis cache when available.
func (s *SubscribeFlowImpl) resolveChannels(ctx context.Context, requested []uint) ([]uint, []string, error) {
	seen := make(map[uint]bool, len(requested))
	unique := make([]uint, 0, len(requested))
	for _, id := range requested {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	titles := make(map[uint]string, len(unique))
	missing := unique

	if s.rc != nil {
		missing = make([]uint, 0, len(unique))
		for _, id := range unique {
			title, err := s.rc.HGet(ctx, utils.ChannelTitleCacheKey, strconv.FormatUint(uint64(id), 10)).Result()
			if err != nil {
				// redis.Nil or a transport error: fall through to the catalog
				missing = append(missing, id)
				continue
			}
			titles[id] = title
		}
	}

	if len(missing) > 0 {
		fromCatalog, err := s.channelRepo.TitlesByIDs(ctx, missing)
		if err != nil {
			return nil, nil, err
		}
		for id, title := range fromCatalog {
			titles[id] = title
		}
		if s.rc != nil && len(fromCatalog) > 0 {
			fields := make([]any, 0, len(fromCatalog)*2)
			for id, title := range fromCatalog {
				fields = append(fields, strconv.FormatUint(uint64(id), 10), title)
			}
			if err := s.rc.HSet(ctx, utils.ChannelTitleCacheKey, fields...).Err(); err == nil {
				_ = s.rc.Expire(ctx, utils.ChannelTitleCacheKey, utils.ChannelTitleCacheTTL).Err()
			}
		}
	}

	knownIDs := make([]uint, 0, len(unique))
	knownTitles := make([]string, 0, len(unique))
	for _, id := range unique {
		if title, ok := titles[id]; ok {
			knownIDs = append(knownIDs, id)
			knownTitles = append(knownTitles, title)
		}
	}

	return knownIDs, knownTitles, nil
}

func (s *SubscribeFlowImpl) createAuditLog(ctx context.Context, email, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return s.auditRepo.Save(ctx, audit)
}
