package repository

import (
	"context"

	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactRepositoryImpl implements the ContactRepository interface
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db),
	}
}

// ByUUID retrieves a contact by UUID
func (r *ContactRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Contact, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ContactFilter{UUID: &parsedUUID}
	contacts, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(contacts) == 0 {
		return nil, nil
	}

	return contacts[0], nil
}

// ByCustomerID retrieves contacts by customer ID with pagination
func (r *ContactRepositoryImpl) ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Contact, error) {
	filter := models.ContactFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ByPhones resolves normalized phones to existing contacts within the tenant
func (r *ContactRepositoryImpl) ByPhones(ctx context.Context, customerID uint, phones []string) ([]*models.Contact, error) {
	if len(phones) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var contacts []*models.Contact
	err := db.Where("customer_id = ? AND phone IN ?", customerID, phones).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

// UpsertByPhone inserts contacts with ON CONFLICT DO NOTHING on the
// (customer_id, phone) unique index
func (r *ContactRepositoryImpl) UpsertByPhone(ctx context.Context, contacts []*models.Contact) error {
	if len(contacts) == 0 {
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

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "phone"}},
		DoNothing: true,
	}).CreateInBatches(contacts, 100).Error
	if err != nil {
		return err
	}

	return nil
}

// Update updates a contact
func (r *ContactRepositoryImpl) Update(ctx context.Context, contact models.Contact) error {
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
	contact.UpdatedAt = &now

	err = db.Save(&contact).Error
	if err != nil {
		return err
	}

	return nil
}

// Delete removes a contact row
func (r *ContactRepositoryImpl) Delete(ctx context.Context, id uint) error {
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

	err = db.Delete(&models.Contact{}, id).Error
	if err != nil {
		return err
	}

	return nil
}

// RemoveCategoryFromContacts detaches the category UUID from every contact of
// the tenant in one UPDATE. Contacts are never deleted here.
func (r *ContactRepositoryImpl) RemoveCategoryFromContacts(ctx context.Context, customerID uint, categoryUUID string) (int64, error) {
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

	res := db.Exec(`
		UPDATE contacts
		SET category_ids = array_remove(category_ids, ?), updated_at = ?
		WHERE customer_id = ? AND ? = ANY(category_ids)`,
		categoryUUID, utils.UTCNow(), customerID, categoryUUID)
	if res.Error != nil {
		err = res.Error
		return 0, err
	}

	return res.RowsAffected, nil
}

// CountByCategory counts the tenant's contacts associated with the category
func (r *ContactRepositoryImpl) CountByCategory(ctx context.Context, customerID uint, categoryUUID string) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Contact{}).
		Where("customer_id = ? AND ? = ANY(category_ids)", customerID, categoryUUID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ByFilter retrieves contacts based on filter criteria
func (r *ContactRepositoryImpl) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error) {
	db := r.getDB(ctx)

	var contacts []*models.Contact
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

	err := query.Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

// Count returns the number of contacts matching the filter
func (r *ContactRepositoryImpl) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Contact{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any contact matching the filter exists
func (r *ContactRepositoryImpl) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ContactRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContactFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Phone != nil {
		db = db.Where("phone = ?", utils.NormalizePhone(*filter.Phone))
	}
	if filter.Name != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.CategoryID != nil {
		db = db.Where("? = ANY(category_ids)", *filter.CategoryID)
	}
	return db
}
