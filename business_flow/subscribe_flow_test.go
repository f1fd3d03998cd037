package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/config"
	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscribeFixture struct {
	channelRepo   *fakeChannelRepo
	recipientRepo *fakeRecipientRepo
	blacklistRepo *fakeBlacklistRepo
	auditRepo     *fakeAuditRepo
	dispatcher    *fakeDispatcher
	flow          SubscribeFlow
}

func newSubscribeFixture(channels ...*models.Channel) *subscribeFixture {
	f := &subscribeFixture{
		channelRepo:   newFakeChannelRepo(channels...),
		recipientRepo: newFakeRecipientRepo(),
		blacklistRepo: newFakeBlacklistRepo(),
		auditRepo:     newFakeAuditRepo(),
		dispatcher:    &fakeDispatcher{},
	}
	f.flow = NewSubscribeFlow(
		f.channelRepo,
		f.recipientRepo,
		f.blacklistRepo,
		f.auditRepo,
		f.dispatcher,
		&config.NotificationConfig{
			TemplateID:      "subscription_activation",
			AdminEmail:      "admin@example.com",
			AdminName:       "Lantern Admin",
			SubjectTemplate: "Your subscription on %s",
		},
		nil,
		nil,
	)
	return f
}

func testMetadata() *ClientMetadata {
	metadata := NewClientMetadata("203.0.113.7", "test-agent/1.0")
	metadata.SetRequest("news.example.com", "https://news.example.com", "/api/v1/subscribe")
	return metadata
}

func TestSubscribe(t *testing.T) {
	newsletter := &models.Channel{ID: 1, Title: "Weekly Digest"}
	announcements := &models.Channel{ID: 2, Title: "Announcements"}

	t.Run("SuccessfulMultiChannelSubscription", func(t *testing.T) {
		f := newSubscribeFixture(newsletter, announcements)

		result, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1, 2},
		}, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.Recorded)
		assert.True(t, result.NotificationSent)
		assert.Equal(t, []string{"Weekly Digest", "Announcements"}, result.Channels)

		rows := f.recipientRepo.all()
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, "reader@example.com", row.Email)
			assert.False(t, row.IsActive())
			assert.False(t, row.IsConfirmed())
			require.NotNil(t, row.SourceIP)
			assert.Equal(t, "203.0.113.7", *row.SourceIP)
		}
		// Both rows carry the token of the same submission
		assert.Equal(t, rows[0].Token, rows[1].Token)
		assert.Len(t, rows[0].Token, 43)

		calls := f.dispatcher.sent()
		require.Len(t, calls, 1)
		assert.Equal(t, "subscription_activation", calls[0].templateID)
		assert.Equal(t, "news.example.com", calls[0].payload["domain"])
		assert.Equal(t, "https://news.example.com/api/v1/subscribe?token="+rows[0].Token, calls[0].payload["link"])
		assert.Equal(t, "Weekly Digest\nAnnouncements", calls[0].payload["channels"])

		assert.Contains(t, f.auditRepo.actions(), models.AuditActionSubscribeRecorded)
	})

	t.Run("UnknownChannelsDropped", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)

		result, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1, 99},
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, []string{"Weekly Digest"}, result.Channels)

		rows := f.recipientRepo.all()
		require.Len(t, rows, 1)
		assert.Equal(t, uint(1), rows[0].ChannelID)
	})

	t.Run("DuplicateChannelIDsCollapsed", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)

		result, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1, 1, 1},
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, []string{"Weekly Digest"}, result.Channels)
		assert.Len(t, f.recipientRepo.all(), 1)
	})

	t.Run("NoKnownChannelsRejected", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)

		result, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{42, 43},
		}, testMetadata())
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsNoChannelsSelected(err))

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "VALIDATION_ERROR", businessErr.Code)

		assert.Empty(t, f.recipientRepo.all())
		assert.Empty(t, f.dispatcher.sent())
	})

	t.Run("ResubmissionSupersedesPendingRows", func(t *testing.T) {
		f := newSubscribeFixture(newsletter, announcements)
		staleToken := GenerateToken()
		f.recipientRepo.add(&models.Recipient{
			ChannelID: 1,
			Email:     "reader@example.com",
			Token:     staleToken,
			Active:    utils.ToPtr(false),
			Confirmed: utils.ToPtr(false),
		})

		_, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1, 2},
		}, testMetadata())
		require.NoError(t, err)

		// The stale token must be dead: the old row was replaced
		stale, err := f.recipientRepo.ListByToken(context.Background(), staleToken)
		require.NoError(t, err)
		assert.Empty(t, stale)

		rows := f.recipientRepo.all()
		require.Len(t, rows, 2)
		assert.NotEqual(t, staleToken, rows[0].Token)
	})

	t.Run("ConfirmedRowsUntouched", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)
		confirmedToken := GenerateToken()
		f.recipientRepo.add(&models.Recipient{
			ChannelID: 1,
			Email:     "reader@example.com",
			Token:     confirmedToken,
			Active:    utils.ToPtr(true),
			Confirmed: utils.ToPtr(true),
		})

		_, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1},
		}, testMetadata())
		require.NoError(t, err)

		confirmed, err := f.recipientRepo.ListByToken(context.Background(), confirmedToken)
		require.NoError(t, err)
		require.Len(t, confirmed, 1)
		assert.True(t, confirmed[0].IsConfirmed())
		assert.Len(t, f.recipientRepo.all(), 2)
	})

	t.Run("SubscribeRevokesOptOut", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)
		emailHash := models.HashEmail("reader@example.com")
		require.NoError(t, f.blacklistRepo.Save(context.Background(), &models.BlacklistEntry{
			EmailHash: emailHash,
			ChannelID: 1,
		}))

		_, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "Reader@Example.COM",
			ChannelIDs: []uint{1},
		}, testMetadata())
		require.NoError(t, err)

		entry, err := f.blacklistRepo.ByHashAndChannel(context.Background(), emailHash, 1)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("DispatchFailureKeepsSubscription", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)
		f.dispatcher.err = errors.New("smtp connection refused")

		result, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1},
		}, testMetadata())
		require.NoError(t, err)
		assert.True(t, result.Recorded)
		assert.False(t, result.NotificationSent)

		// The pending row survives the delivery failure
		assert.Len(t, f.recipientRepo.all(), 1)

		actions := f.auditRepo.actions()
		assert.Contains(t, actions, models.AuditActionSubscribeRecorded)
		assert.Contains(t, actions, models.AuditActionDispatchFailed)
	})

	t.Run("StoreFailureAbortsSubmission", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)
		f.recipientRepo.saveErr = errors.New("insert failed")

		result, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1},
		}, testMetadata())
		require.Error(t, err)
		assert.Nil(t, result)

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "SUBSCRIBE_FAILED", businessErr.Code)

		// Nothing recorded, nothing dispatched, failure audited
		assert.Empty(t, f.recipientRepo.all())
		assert.Empty(t, f.dispatcher.sent())
		assert.Contains(t, f.auditRepo.actions(), models.AuditActionSubscribeFailed)
	})

	t.Run("ConcurrentSubmissionsLeaveOneRowPerChannel", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
					Email:      "reader@example.com",
					ChannelIDs: []uint{1},
				}, testMetadata())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// The per-email lock serializes the submissions: each one supersedes
		// the previous pending row, so exactly one unconfirmed row survives.
		rows := f.recipientRepo.all()
		require.Len(t, rows, 1)
		assert.False(t, rows[0].IsConfirmed())
		assert.Equal(t, uint(1), rows[0].ChannelID)
	})

	t.Run("AuditRowsCarryRequestID", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-1234")

		_, err := f.flow.Subscribe(ctx, &dto.SubscribeRequest{
			Email:      "reader@example.com",
			ChannelIDs: []uint{1},
		}, testMetadata())
		require.NoError(t, err)

		entries, err := f.auditRepo.ListByAction(context.Background(), models.AuditActionSubscribeRecorded, 0, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].RequestID)
		assert.Equal(t, "req-1234", *entries[0].RequestID)
	})

	t.Run("EmailNormalized", func(t *testing.T) {
		f := newSubscribeFixture(newsletter)

		_, err := f.flow.Subscribe(context.Background(), &dto.SubscribeRequest{
			Email:      "  Reader@Example.COM ",
			ChannelIDs: []uint{1},
		}, testMetadata())
		require.NoError(t, err)

		rows := f.recipientRepo.all()
		require.Len(t, rows, 1)
		assert.Equal(t, "reader@example.com", rows[0].Email)
	})
}
