// Package testing provides test utilities and database setup for testing the mailing-list system
package testing

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	businessflow "github.com/lanternmail/lantern/business_flow"
	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestChannel creates a channel with a unique title
func (tf *TestFixtures) CreateTestChannel(title string) (*models.Channel, error) {
	if title == "" {
		title = fmt.Sprintf("Channel %04d", rand.Intn(10000))
	}

	channel := &models.Channel{
		Title:       title,
		SenderName:  "Lantern",
		SenderEmail: "news@example.com",
		JumpTo:      "/welcome",
	}

	if err := tf.DB.DB.Create(channel).Error; err != nil {
		return nil, fmt.Errorf("failed to create test channel: %w", err)
	}

	return channel, nil
}

// CreateTestRecipient creates a recipient row for the channel. Pass confirmed
// to create an already activated subscription.
func (tf *TestFixtures) CreateTestRecipient(channelID uint, email string, confirmed bool) (*models.Recipient, error) {
	if email == "" {
		email = fmt.Sprintf("visitor.%04d@example.com", rand.Intn(10000))
	}

	now := utils.UTCNow()
	recipient := &models.Recipient{
		ChannelID: channelID,
		Email:     email,
		Token:     businessflow.GenerateToken(),
		Active:    utils.ToPtr(confirmed),
		Confirmed: utils.ToPtr(confirmed),
		AddedOn:   now,
	}
	if confirmed {
		recipient.ConfirmedOn = utils.ToPtr(now)
	}

	if err := tf.DB.DB.Create(recipient).Error; err != nil {
		return nil, fmt.Errorf("failed to create test recipient: %w", err)
	}

	return recipient, nil
}

// CreateTestBlacklistEntry blacklists an email on a channel
func (tf *TestFixtures) CreateTestBlacklistEntry(channelID uint, email string) (*models.BlacklistEntry, error) {
	entry := &models.BlacklistEntry{
		EmailHash: models.HashEmail(email),
		ChannelID: channelID,
	}

	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create test blacklist entry: %w", err)
	}

	return entry, nil
}

// CreateTestAdmin creates an active admin with the given credentials
func (tf *TestFixtures) CreateTestAdmin(username, password string) (*models.Admin, error) {
	if username == "" {
		username = fmt.Sprintf("admin%04d", rand.Intn(10000))
	}
	if password == "" {
		password = "TestPass123!"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}

	return admin, nil
}
