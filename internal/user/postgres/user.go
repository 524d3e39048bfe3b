package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/audit"
	auditDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/audit"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/college-erp/internal/user"
	"gorm.io/gorm"
)

// Repository implements user.Repository on GORM. Audited mutations run in a
// transaction so the row change and its history record commit together.
type Repository struct {
	db       *gorm.DB
	recorder audit.Recorder
}

func NewRepository(db *gorm.DB, recorder audit.Recorder) *Repository {
	return &Repository{db: db, recorder: recorder}
}

func (r *Repository) GetByID(userID string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Preload("Designation").
		Where("user_id = ? AND is_deleted = ?", userID, false).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) List(params user.ListParams) ([]userDatamodel.User, int64, error) {
	query := r.db.Model(&userDatamodel.User{}).Where("is_deleted = ?", false)

	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []userDatamodel.User
	err := query.Preload("Designation").
		Order("user_id").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) Create(u *userDatamodel.User, actor internal.Actor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			if isDuplicateKey(err) {
				return user.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityUser,
			EntityID:   u.UserID,
			Action:     auditDatamodel.ActionInsert,
			Actor:      actor,
			NewData:    u.Snapshot(),
		})
	})
}

func (r *Repository) Update(u *userDatamodel.User, fields map[string]interface{}, actor internal.Actor) error {
	oldData := u.Snapshot()

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&userDatamodel.User{}).
			Where("user_id = ?", u.UserID).
			Updates(fields).Error; err != nil {
			if isDuplicateKey(err) {
				return user.ErrDuplicate
			}
			return err
		}

		var fresh userDatamodel.User
		if err := tx.Where("user_id = ?", u.UserID).First(&fresh).Error; err != nil {
			return err
		}

		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityUser,
			EntityID:   u.UserID,
			Action:     auditDatamodel.ActionUpdate,
			Actor:      actor,
			OldData:    oldData,
			NewData:    fresh.Snapshot(),
		})
	})
}

// SoftDelete flips is_deleted and appends the DELETE history row atomically.
func (r *Repository) SoftDelete(userID string, actor internal.Actor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var u userDatamodel.User
		err := tx.Where("user_id = ? AND is_deleted = ?", userID, false).First(&u).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return user.ErrNotFound
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(&userDatamodel.User{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"is_active":  false,
				"deleted_by": actor.Ref(),
				"deleted_at": now,
			}).Error; err != nil {
			return err
		}

		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityUser,
			EntityID:   userID,
			Action:     auditDatamodel.ActionDelete,
			Actor:      actor,
			OldData:    u.Snapshot(),
		})
	})
}

// HardDelete removes the row and its password history. The users_history
// trail is append-only and stays.
func (r *Repository) HardDelete(userID string, actor internal.Actor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var u userDatamodel.User
		err := tx.Where("user_id = ?", userID).First(&u).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return user.ErrNotFound
			}
			return err
		}

		if err := tx.Where("user_id = ?", userID).
			Delete(&userDatamodel.PasswordHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&userDatamodel.User{}).Error; err != nil {
			return err
		}

		return r.recorder.Record(tx, audit.Entry{
			EntityType: audit.EntityUser,
			EntityID:   userID,
			Action:     auditDatamodel.ActionDelete,
			Actor:      actor,
			OldData:    u.Snapshot(),
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
