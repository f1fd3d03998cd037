package businessflow

import (
	"context"
	"testing"

	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confirmFixture struct {
	channelRepo   *fakeChannelRepo
	recipientRepo *fakeRecipientRepo
	auditRepo     *fakeAuditRepo
	flow          ConfirmFlow
}

func newConfirmFixture(channels ...*models.Channel) *confirmFixture {
	f := &confirmFixture{
		channelRepo:   newFakeChannelRepo(channels...),
		recipientRepo: newFakeRecipientRepo(),
		auditRepo:     newFakeAuditRepo(),
	}
	f.flow = NewConfirmFlow(f.recipientRepo, f.channelRepo, f.auditRepo, nil)
	return f
}

func (f *confirmFixture) addPending(channelID uint, email, token string) {
	f.recipientRepo.add(&models.Recipient{
		ChannelID: channelID,
		Email:     email,
		Token:     token,
		Active:    utils.ToPtr(false),
		Confirmed: utils.ToPtr(false),
	})
}

func TestConfirm(t *testing.T) {
	newsletter := &models.Channel{ID: 1, Title: "Weekly Digest"}
	announcements := &models.Channel{ID: 2, Title: "Announcements"}

	t.Run("SuccessfulConfirmation", func(t *testing.T) {
		f := newConfirmFixture(newsletter, announcements)
		token := GenerateToken()
		f.addPending(1, "reader@example.com", token)
		f.addPending(2, "reader@example.com", token)

		result, err := f.flow.Confirm(context.Background(), &dto.ConfirmRequest{Token: token}, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "reader@example.com", result.Email)
		assert.ElementsMatch(t, []string{"Weekly Digest", "Announcements"}, result.Channels)

		for _, row := range f.recipientRepo.all() {
			assert.True(t, row.IsActive())
			assert.True(t, row.IsConfirmed())
			require.NotNil(t, row.ConfirmedOn)
		}

		assert.Contains(t, f.auditRepo.actions(), models.AuditActionSubscribeConfirmed)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		f := newConfirmFixture(newsletter)

		result, err := f.flow.Confirm(context.Background(), &dto.ConfirmRequest{Token: GenerateToken()}, testMetadata())
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsTokenNotFound(err))

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "TOKEN_NOT_FOUND", businessErr.Code)

		assert.Contains(t, f.auditRepo.actions(), models.AuditActionConfirmFailed)
	})

	t.Run("TokenWorksExactlyOnce", func(t *testing.T) {
		f := newConfirmFixture(newsletter)
		token := GenerateToken()
		f.addPending(1, "reader@example.com", token)

		_, err := f.flow.Confirm(context.Background(), &dto.ConfirmRequest{Token: token}, testMetadata())
		require.NoError(t, err)

		_, err = f.flow.Confirm(context.Background(), &dto.ConfirmRequest{Token: token}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTokenNotFound(err))
	})

	t.Run("MissingToken", func(t *testing.T) {
		f := newConfirmFixture(newsletter)

		result, err := f.flow.Confirm(context.Background(), &dto.ConfirmRequest{}, testMetadata())
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsTokenNotFound(err))

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "CONFIRM_VALIDATION_FAILED", businessErr.Code)
	})

	t.Run("OnlyTokenRowsActivated", func(t *testing.T) {
		f := newConfirmFixture(newsletter, announcements)
		token := GenerateToken()
		otherToken := GenerateToken()
		f.addPending(1, "reader@example.com", token)
		f.addPending(2, "other@example.com", otherToken)

		_, err := f.flow.Confirm(context.Background(), &dto.ConfirmRequest{Token: token}, testMetadata())
		require.NoError(t, err)

		others, err := f.recipientRepo.ListByToken(context.Background(), otherToken)
		require.NoError(t, err)
		require.Len(t, others, 1)
		assert.False(t, others[0].IsConfirmed())
	})
}
