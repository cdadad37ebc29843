package repository

import (
	"context"
	"errors"

	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// CategoryRepositoryImpl implements the CategoryRepository interface
type CategoryRepositoryImpl struct {
	*BaseRepository[models.Category, models.CategoryFilter]
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &CategoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Category, models.CategoryFilter](db),
	}
}

// ByUUID retrieves a category by UUID
func (r *CategoryRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Category, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CategoryFilter{UUID: &parsedUUID}
	categories, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		return nil, nil
	}

	return categories[0], nil
}

// ByName matches a category name case-insensitively within the tenant
func (r *CategoryRepositoryImpl) ByName(ctx context.Context, customerID uint, name string) (*models.Category, error) {
	db := r.getDB(ctx)

	var category models.Category
	err := db.Where("customer_id = ? AND LOWER(name) = LOWER(?)", customerID, name).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &category, nil
}

// ByCustomerID retrieves all categories of the tenant
func (r *CategoryRepositoryImpl) ByCustomerID(ctx context.Context, customerID uint) ([]*models.Category, error) {
	filter := models.CategoryFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "name ASC", 0, 0)
}

// Update updates a category
func (r *CategoryRepositoryImpl) Update(ctx context.Context, category models.Category) error {
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
	category.UpdatedAt = &now

	err = db.Save(&category).Error
	if err != nil {
		return err
	}

	return nil
}

// Delete removes a category row
func (r *CategoryRepositoryImpl) Delete(ctx context.Context, id uint) error {
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

	err = db.Delete(&models.Category{}, id).Error
	if err != nil {
		return err
	}

	return nil
}

// AdjustContactCount shifts the denormalized contact counter, floored at zero
func (r *CategoryRepositoryImpl) AdjustContactCount(ctx context.Context, id uint, delta int) error {
	if delta == 0 {
		return nil
	}

	db := r.getDB(ctx)
	return db.Exec(`
		UPDATE categories
		SET contact_count = GREATEST(contact_count + ?, 0), updated_at = ?
		WHERE id = ?`,
		delta, utils.UTCNow(), id).Error
}

// ByFilter retrieves categories based on filter criteria
func (r *CategoryRepositoryImpl) ByFilter(ctx context.Context, filter models.CategoryFilter, orderBy string, limit, offset int) ([]*models.Category, error) {
	db := r.getDB(ctx)

	var categories []*models.Category
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

	err := query.Find(&categories).Error
	if err != nil {
		return nil, err
	}

	return categories, nil
}

// Count returns the number of categories matching the filter
func (r *CategoryRepositoryImpl) Count(ctx context.Context, filter models.CategoryFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Category{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any category matching the filter exists
func (r *CategoryRepositoryImpl) Exists(ctx context.Context, filter models.CategoryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CategoryRepositoryImpl) applyFilter(db *gorm.DB, filter models.CategoryFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Name != nil {
		db = db.Where("LOWER(name) = LOWER(?)", *filter.Name)
	}
	return db
}
