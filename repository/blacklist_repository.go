// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/lanternmail/lantern/models"
	"gorm.io/gorm"
)

// BlacklistRepositoryImpl implements BlacklistRepository interface
type BlacklistRepositoryImpl struct {
	*BaseRepository[models.BlacklistEntry, models.BlacklistEntryFilter]
}

// NewBlacklistRepository creates a new blacklist repository
func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &BlacklistRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BlacklistEntry, models.BlacklistEntryFilter](db),
	}
}

// ByHashAndChannel retrieves the opt-out entry for one (email hash, channel) pair
func (r *BlacklistRepositoryImpl) ByHashAndChannel(ctx context.Context, emailHash string, channelID uint) (*models.BlacklistEntry, error) {
	filter := models.BlacklistEntryFilter{EmailHash: &emailHash, ChannelID: &channelID}
	entries, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, nil
	}

	return entries[0], nil
}

// Delete removes a blacklist entry
func (r *BlacklistRepositoryImpl) Delete(ctx context.Context, entry *models.BlacklistEntry) error {
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

	err = db.Delete(entry).Error
	return err
}

// DeleteByHashAndChannel removes the opt-out entry for the pair, if any
func (r *BlacklistRepositoryImpl) DeleteByHashAndChannel(ctx context.Context, emailHash string, channelID uint) error {
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

	err = db.Where("email_hash = ? AND channel_id = ?", emailHash, channelID).
		Delete(&models.BlacklistEntry{}).Error
	return err
}

// applyFilter applies filter criteria to a GORM query
func (r *BlacklistRepositoryImpl) applyFilter(query *gorm.DB, filter models.BlacklistEntryFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.EmailHash != nil {
		query = query.Where("email_hash = ?", *filter.EmailHash)
	}
	if filter.ChannelID != nil {
		query = query.Where("channel_id = ?", *filter.ChannelID)
	}
	return query
}

// ByFilter retrieves blacklist entries based on filter criteria
func (r *BlacklistRepositoryImpl) ByFilter(ctx context.Context, filter models.BlacklistEntryFilter, orderBy string, limit, offset int) ([]*models.BlacklistEntry, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.BlacklistEntry{})

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

	var entries []*models.BlacklistEntry
	err := query.Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the number of blacklist entries matching the filter
func (r *BlacklistRepositoryImpl) Count(ctx context.Context, filter models.BlacklistEntryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.BlacklistEntry{})

	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any blacklist entry matching the filter exists
func (r *BlacklistRepositoryImpl) Exists(ctx context.Context, filter models.BlacklistEntryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
