package postgres

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/audit"
	auditDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/audit"
	masterDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/master"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/college-erp/internal/master"
	"gorm.io/gorm"
)

// Repository implements master.Repository on GORM. Designation mutations are
// transactional with their history rows; country and state rows carry audit
// columns but no history table.
type Repository struct {
	db       *gorm.DB
	recorder audit.Recorder
}

func NewRepository(db *gorm.DB, recorder audit.Recorder) *Repository {
	return &Repository{db: db, recorder: recorder}
}

func (r *Repository) ListCountries() ([]masterDatamodel.Country, error) {
	var countries []masterDatamodel.Country
	err := r.db.Where("is_deleted = ?", false).Order("name").Find(&countries).Error
	return countries, err
}

func (r *Repository) CreateCountry(c *masterDatamodel.Country) error {
	if err := r.db.Create(c).Error; err != nil {
		if isDuplicateKey(err) {
			return master.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateCountry(countryID int64, fields map[string]interface{}) error {
	result := r.db.Model(&masterDatamodel.Country{}).
		Where("country_id = ? AND is_deleted = ?", countryID, false).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return master.ErrNotFound
	}
	return nil
}

func (r *Repository) ListStates(countryID int64) ([]masterDatamodel.State, error) {
	query := r.db.Where("is_deleted = ?", false)
	if countryID > 0 {
		query = query.Where("country_id = ?", countryID)
	}

	var states []masterDatamodel.State
	err := query.Order("name").Find(&states).Error
	return states, err
}

func (r *Repository) CreateState(s *masterDatamodel.State) error {
	if err := r.db.Create(s).Error; err != nil {
		if isDuplicateKey(err) {
			return master.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateState(stateID int64, fields map[string]interface{}) error {
	result := r.db.Model(&masterDatamodel.State{}).
		Where("state_id = ? AND is_deleted = ?", stateID, false).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return master.ErrNotFound
	}
	return nil
}

func (r *Repository) ListDesignations() ([]userDatamodel.Designation, error) {
	var designations []userDatamodel.Designation
	err := r.db.Where("is_deleted = ?", false).Order("name").Find(&designations).Error
	return designations, err
}

func (r *Repository) GetDesignation(designationID int64) (*userDatamodel.Designation, error) {
	var d userDatamodel.Designation
	err := r.db.Where("designation_id = ? AND is_deleted = ?", designationID, false).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, master.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repository) CreateDesignation(d *userDatamodel.Designation, actor internal.Actor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			if isDuplicateKey(err) {
				return master.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityDesignation,
			EntityID:   strconv.FormatInt(d.DesignationID, 10),
			Action:     auditDatamodel.ActionInsert,
			Actor:      actor,
			NewData:    d.Snapshot(),
		})
	})
}

func (r *Repository) UpdateDesignation(d *userDatamodel.Designation, fields map[string]interface{}, actor internal.Actor) error {
	oldData := d.Snapshot()

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&userDatamodel.Designation{}).
			Where("designation_id = ?", d.DesignationID).
			Updates(fields).Error; err != nil {
			if isDuplicateKey(err) {
				return master.ErrDuplicate
			}
			return err
		}

		var fresh userDatamodel.Designation
		if err := tx.Where("designation_id = ?", d.DesignationID).First(&fresh).Error; err != nil {
			return err
		}

		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityDesignation,
			EntityID:   strconv.FormatInt(d.DesignationID, 10),
			Action:     auditDatamodel.ActionUpdate,
			Actor:      actor,
			OldData:    oldData,
			NewData:    fresh.Snapshot(),
		})
	})
}

// SoftDeleteDesignation flips is_deleted and appends the DELETE history row
// in one transaction.
func (r *Repository) SoftDeleteDesignation(designationID int64, actor internal.Actor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var d userDatamodel.Designation
		err := tx.Where("designation_id = ? AND is_deleted = ?", designationID, false).
			First(&d).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return master.ErrNotFound
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(&userDatamodel.Designation{}).
			Where("designation_id = ?", designationID).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"is_active":  false,
				"deleted_by": actor.Ref(),
				"deleted_at": now,
			}).Error; err != nil {
			return err
		}

		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityDesignation,
			EntityID:   strconv.FormatInt(designationID, 10),
			Action:     auditDatamodel.ActionDelete,
			Actor:      actor,
			OldData:    d.Snapshot(),
		})
	})
}

func (r *Repository) HardDeleteDesignation(designationID int64, actor internal.Actor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var d userDatamodel.Designation
		err := tx.Where("designation_id = ?", designationID).First(&d).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return master.ErrNotFound
			}
			return err
		}

		if err := tx.Where("designation_id = ?", designationID).
			Delete(&userDatamodel.Designation{}).Error; err != nil {
			return err
		}

		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityDesignation,
			EntityID:   strconv.FormatInt(designationID, 10),
			Action:     auditDatamodel.ActionDelete,
			Actor:      actor,
			OldData:    d.Snapshot(),
		})
	})
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
