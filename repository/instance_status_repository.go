package repository

import (
	"context"
	"errors"

	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// InstanceStatusRepositoryImpl implements the InstanceStatusRepository interface
type InstanceStatusRepositoryImpl struct {
	*BaseRepository[models.InstanceStatus, models.InstanceStatusFilter]
}

// NewInstanceStatusRepository creates a new instance status repository
func NewInstanceStatusRepository(db *gorm.DB) InstanceStatusRepository {
	return &InstanceStatusRepositoryImpl{
		BaseRepository: NewBaseRepository[models.InstanceStatus, models.InstanceStatusFilter](db),
	}
}

// ByCustomerID retrieves the tenant's instance status row
func (r *InstanceStatusRepositoryImpl) ByCustomerID(ctx context.Context, customerID uint) (*models.InstanceStatus, error) {
	db := r.getDB(ctx)

	var status models.InstanceStatus
	err := db.Where("customer_id = ?", customerID).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &status, nil
}

// ByInstanceID retrieves the status row for a gateway instance
func (r *InstanceStatusRepositoryImpl) ByInstanceID(ctx context.Context, instanceID string) (*models.InstanceStatus, error) {
	db := r.getDB(ctx)

	var status models.InstanceStatus
	err := db.Where("instance_id = ?", instanceID).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &status, nil
}

// Update updates an instance status row
func (r *InstanceStatusRepositoryImpl) Update(ctx context.Context, status models.InstanceStatus) error {
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
	status.UpdatedAt = &now

	err = db.Save(&status).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves instance statuses based on filter criteria
func (r *InstanceStatusRepositoryImpl) ByFilter(ctx context.Context, filter models.InstanceStatusFilter, orderBy string, limit, offset int) ([]*models.InstanceStatus, error) {
	db := r.getDB(ctx)

	var statuses []*models.InstanceStatus
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

	err := query.Find(&statuses).Error
	if err != nil {
		return nil, err
	}

	return statuses, nil
}

// Count returns the number of instance statuses matching the filter
func (r *InstanceStatusRepositoryImpl) Count(ctx context.Context, filter models.InstanceStatusFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.InstanceStatus{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any instance status matching the filter exists
func (r *InstanceStatusRepositoryImpl) Exists(ctx context.Context, filter models.InstanceStatusFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *InstanceStatusRepositoryImpl) applyFilter(db *gorm.DB, filter models.InstanceStatusFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.InstanceID != nil {
		db = db.Where("instance_id = ?", *filter.InstanceID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}
