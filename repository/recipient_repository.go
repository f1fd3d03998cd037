// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/utils"
	"gorm.io/gorm"
)

// RecipientRepositoryImpl implements RecipientRepository interface
type RecipientRepositoryImpl struct {
	*BaseRepository[models.Recipient, models.RecipientFilter]
}

// NewRecipientRepository creates a new recipient repository
func NewRecipientRepository(db *gorm.DB) RecipientRepository {
	return &RecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Recipient, models.RecipientFilter](db),
	}
}

// ListUnconfirmed returns the unconfirmed rows for the email whose channel
// is in channelIDs. These are the rows a new submission supersedes.
func (r *RecipientRepositoryImpl) ListUnconfirmed(ctx context.Context, email string, channelIDs []uint) ([]*models.Recipient, error) {
	if len(channelIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var recipients []*models.Recipient
	err := db.Where("email = ? AND channel_id IN ? AND confirmed = ?", email, channelIDs, false).
		Order("id ASC").
		Find(&recipients).Error
	if err != nil {
		return nil, err
	}

	return recipients, nil
}

// Delete removes a recipient row
func (r *RecipientRepositoryImpl) Delete(ctx context.Context, recipient *models.Recipient) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(recipient).Error
	return err
}

// DeleteUnconfirmed removes every unconfirmed row for the email/channel pairs.
// Confirmed rows are history and are never touched here.
func (r *RecipientRepositoryImpl) DeleteUnconfirmed(ctx context.Context, email string, channelIDs []uint) error {
	if len(channelIDs) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("email = ? AND channel_id IN ? AND confirmed = ?", email, channelIDs, false).
		Delete(&models.Recipient{}).Error
	return err
}

// DeleteActive removes active rows for the email/channel pairs (opt-out path)
func (r *RecipientRepositoryImpl) DeleteActive(ctx context.Context, email string, channelIDs []uint) error {
	if len(channelIDs) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("email = ? AND channel_id IN ? AND active = ?", email, channelIDs, true).
		Delete(&models.Recipient{}).Error
	return err
}

// ListByToken returns every row created by the submission that issued the token
func (r *RecipientRepositoryImpl) ListByToken(ctx context.Context, token string) ([]*models.Recipient, error) {
	return r.ByFilter(ctx, models.RecipientFilter{Token: &token}, "id ASC", 0, 0)
}

// ConfirmByToken activates every unconfirmed row bearing the token and returns
// the number of rows affected. Zero means the token is unknown or already consumed.
func (r *RecipientRepositoryImpl) ConfirmByToken(ctx context.Context, token string, confirmedOn time.Time) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.Recipient{}).
		Where("token = ? AND confirmed = ?", token, false).
		Updates(map[string]any{
			"active":       true,
			"confirmed":    true,
			"confirmed_on": confirmedOn,
		})
	if result.Error != nil {
		err = result.Error
		return 0, err
	}

	return result.RowsAffected, nil
}

// ListByChannel retrieves recipients of a channel, optionally only active ones
func (r *RecipientRepositoryImpl) ListByChannel(ctx context.Context, channelID uint, onlyActive bool, limit, offset int) ([]*models.Recipient, error) {
	filter := models.RecipientFilter{ChannelID: &channelID}
	if onlyActive {
		filter.Active = utils.ToPtr(true)
	}
	return r.ByFilter(ctx, filter, "email ASC, id ASC", limit, offset)
}

// applyFilter applies filter criteria to a GORM query
func (r *RecipientRepositoryImpl) applyFilter(query *gorm.DB, filter models.RecipientFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ChannelID != nil {
		query = query.Where("channel_id = ?", *filter.ChannelID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	if filter.Token != nil {
		query = query.Where("token = ?", *filter.Token)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Confirmed != nil {
		query = query.Where("confirmed = ?", *filter.Confirmed)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves recipients based on filter criteria
func (r *RecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.RecipientFilter, orderBy string, limit, offset int) ([]*models.Recipient, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Recipient{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var recipients []*models.Recipient
	err := query.Find(&recipients).Error
	if err != nil {
		return nil, err
	}

	return recipients, nil
}

// Count returns the number of recipients matching the filter
func (r *RecipientRepositoryImpl) Count(ctx context.Context, filter models.RecipientFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Recipient{})

	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any recipient matching the filter exists
func (r *RecipientRepositoryImpl) Exists(ctx context.Context, filter models.RecipientFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
