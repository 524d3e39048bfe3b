package postgres

import (
	"errors"
	"fmt"

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/audit"
	"github.com/frahmantamala/college-erp/internal/auth"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements auth.Repository on GORM. Inside WithLockedUser the
// same type wraps the transaction handle, so every method works both inside
// and outside the row lock.
type Repository struct {
	db       *gorm.DB
	recorder audit.Recorder
}

func NewRepository(db *gorm.DB, recorder audit.Recorder) *Repository {
	return &Repository{db: db, recorder: recorder}
}

func (r *Repository) FindByIdentifier(identifier string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Preload("Designation").
		Where("user_id = ? AND is_deleted = ?", identifier, false).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Save(u *userDatamodel.User) error {
	return r.db.Save(u).Error
}

func (r *Repository) UpdateFields(userID string, fields map[string]interface{}) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}

// WithLockedUser serializes per-user mutation with SELECT ... FOR UPDATE.
// The sqlite test dialect has no row locks; its transactions serialize at the
// database level, which is equivalent for the in-memory suites.
func (r *Repository) WithLockedUser(identifier string, fn func(locked auth.Repository, u *userDatamodel.User) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("Designation").
			Where("user_id = ? AND is_deleted = ?", identifier, false)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var u userDatamodel.User
		if err := query.First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return auth.ErrUserNotFound
			}
			return err
		}

		return fn(&Repository{db: tx, recorder: r.recorder}, &u)
	})
}

func (r *Repository) PasswordHistory(userID string, limit int) ([]userDatamodel.PasswordHistory, error) {
	var history []userDatamodel.PasswordHistory
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&history).Error
	return history, err
}

func (r *Repository) AppendPasswordHistory(userID, passwordHash string) error {
	entry := userDatamodel.PasswordHistory{
		UserID:       userID,
		PasswordHash: passwordHash,
	}
	return r.db.Create(&entry).Error
}

// TrimPasswordHistory deletes everything past the keep most-recent entries.
func (r *Repository) TrimPasswordHistory(userID string, keep int) error {
	var stale []int64
	err := r.db.Model(&userDatamodel.PasswordHistory{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, password_history_id DESC").
		Offset(keep).
		Limit(-1).
		Pluck("password_history_id", &stale).Error
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	return r.db.Where("password_history_id IN ?", stale).
		Delete(&userDatamodel.PasswordHistory{}).Error
}

func (r *Repository) RecordUserHistory(entry auth.UserHistoryEntry) error {
	if r.recorder == nil {
		return fmt.Errorf("auth repository: no audit recorder configured")
	}
	return r.recorder.Record(r.db, audit.Entry{
		EntityType: audit.EntityUser,
		EntityID:   entry.UserID,
		Action:     entry.Action,
		Actor:      internal.Actor{UserID: entry.ActorRef},
		OldData:    entry.OldData,
		NewData:    entry.NewData,
	})
}
