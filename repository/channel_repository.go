// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/lanternmail/lantern/models"
	"gorm.io/gorm"
)

// ChannelRepositoryImpl implements ChannelRepository interface
type ChannelRepositoryImpl struct {
	*BaseRepository[models.Channel, models.ChannelFilter]
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &ChannelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Channel, models.ChannelFilter](db),
	}
}

// ByIDs retrieves the channels whose ID is in ids; unknown IDs are skipped.
func (r *ChannelRepositoryImpl) ByIDs(ctx context.Context, ids []uint) ([]*models.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var channels []*models.Channel
	err := db.Where("id IN ?", ids).Order("id ASC").Find(&channels).Error
	if err != nil {
		return nil, err
	}

	return channels, nil
}

// TitlesByIDs resolves channel titles keyed by ID. IDs without a catalog row
// are absent from the result, matching the permissive lookup contract.
func (r *ChannelRepositoryImpl) TitlesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	channels, err := r.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	titles := make(map[uint]string, len(channels))
	for _, channel := range channels {
		titles[channel.ID] = channel.Title
	}

	return titles, nil
}

// Update persists changes to an existing channel
func (r *ChannelRepositoryImpl) Update(ctx context.Context, channel *models.Channel) error {
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

	err = db.Save(channel).Error
	return err
}

// List retrieves channels ordered by ID
func (r *ChannelRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*models.Channel, error) {
	return r.ByFilter(ctx, models.ChannelFilter{}, "id ASC", limit, offset)
}

// applyFilter applies filter criteria to a GORM query
func (r *ChannelRepositoryImpl) applyFilter(query *gorm.DB, filter models.ChannelFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Title != nil {
		query = query.Where("title = ?", *filter.Title)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves channels based on filter criteria
func (r *ChannelRepositoryImpl) ByFilter(ctx context.Context, filter models.ChannelFilter, orderBy string, limit, offset int) ([]*models.Channel, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Channel{})

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

	var channels []*models.Channel
	err := query.Find(&channels).Error
	if err != nil {
		return nil, err
	}

	return channels, nil
}

// Count returns the number of channels matching the filter
func (r *ChannelRepositoryImpl) Count(ctx context.Context, filter models.ChannelFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Channel{})

	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any channel matching the filter exists
func (r *ChannelRepositoryImpl) Exists(ctx context.Context, filter models.ChannelFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
