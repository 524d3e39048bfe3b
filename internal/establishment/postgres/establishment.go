package postgres

import (
	"errors"
	"fmt"

	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/college-erp/pkg/idgen"
	"gorm.io/gorm"
)

// Repository resolves employee id sequences from issued identifiers.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// NextEmployeeSequence scans for the highest identifier already issued for
// the employee type and year, deleted accounts included, so ids are never
// reissued.
func (r *Repository) NextEmployeeSequence(employeeType string, year int) (int, error) {
	prefix := fmt.Sprintf("EM%d%s", year, employeeType)

	var latest userDatamodel.User
	err := r.db.Where("user_id LIKE ?", prefix+"%").
		Order("user_id DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, err
	}

	return idgen.ParseSequence(latest.UserID) + 1, nil
}
