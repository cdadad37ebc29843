package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByID retrieves a campaign by ID
func (r *CampaignRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Preload("Customer").Last(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &campaign, nil
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignFilter{UUID: &parsedUUID}
	campaigns, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// ByCustomerID retrieves campaigns by customer ID with pagination
func (r *CampaignRepositoryImpl) ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Campaign, error) {
	filter := models.CampaignFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a campaign
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign models.Campaign) error {
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

	now := utils.UTCNow()
	campaign.UpdatedAt = &now

	err = db.Save(&campaign).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStatus updates only the status of a campaign
func (r *CampaignRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
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

	err = db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// IncrementStats atomically bumps the sent/failed counters inside the jsonb
// stats column. Total is never touched here; it is fixed at creation.
func (r *CampaignRepositoryImpl) IncrementStats(ctx context.Context, id uint, sentDelta, failedDelta int) error {
	if sentDelta == 0 && failedDelta == 0 {
		return nil
	}

	db := r.getDB(ctx)
	return db.Exec(`
		UPDATE campaigns
		SET stats = jsonb_set(
				jsonb_set(stats, '{sent}', to_jsonb(COALESCE((stats->>'sent')::int, 0) + ?)),
				'{failed}', to_jsonb(COALESCE((stats->>'failed')::int, 0) + ?)),
			updated_at = ?
		WHERE id = ?`,
		sentDelta, failedDelta, utils.UTCNow(), id).Error
}

// PauseSending pauses every sending campaign of the tenant. The mutation is a
// single UPDATE keyed on the current status, so replaying it is a no-op. The
// rows are read in the same transaction before the update so callers get the
// pre-pause state for snapshots.
func (r *CampaignRepositoryImpl) PauseSending(ctx context.Context, customerID uint, reason models.PauseReason, at time.Time) ([]*models.Campaign, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
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

	var campaigns []*models.Campaign
	err = db.Where("customer_id = ? AND status = ?", customerID, models.CampaignStatusSending).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	err = db.Model(&models.Campaign{}).
		Where("customer_id = ? AND status = ?", customerID, models.CampaignStatusSending).
		Updates(map[string]any{
			"status":       models.CampaignStatusPaused,
			"pause_reason": reason,
			"paused_at":    at,
			"updated_at":   utils.UTCNow(),
		}).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// ResumeDisconnected resumes every campaign the tenant had paused for a
// disconnection. Keying on pause_reason leaves manual and other pauses alone
// and makes the batch idempotent.
func (r *CampaignRepositoryImpl) ResumeDisconnected(ctx context.Context, customerID uint) (int64, error) {
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

	res := db.Model(&models.Campaign{}).
		Where("customer_id = ? AND status = ? AND pause_reason = ?",
			customerID, models.CampaignStatusPaused, models.PauseReasonDisconnected).
		Updates(map[string]any{
			"status":       models.CampaignStatusSending,
			"pause_reason": nil,
			"paused_at":    nil,
			"updated_at":   utils.UTCNow(),
		})
	if res.Error != nil {
		err = res.Error
		return 0, err
	}

	return res.RowsAffected, nil
}

// Delete removes a campaign row
func (r *CampaignRepositoryImpl) Delete(ctx context.Context, id uint) error {
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

	err = db.Delete(&models.Campaign{}, id).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any campaign matching the filter exists
func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.PauseReason != nil {
		db = db.Where("pause_reason = ?", *filter.PauseReason)
	}
	if filter.Name != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
