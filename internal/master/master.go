package master

import (
	"errors"

	masterDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/master"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/college-erp/internal"
)

var (
	ErrNotFound  = errors.New("master record not found")
	ErrDuplicate = errors.New("duplicate master record")
)

// Repository persists reference data. Designation mutations carry the acting
// admin so the history row lands in the same transaction.
type Repository interface {
	ListCountries() ([]masterDatamodel.Country, error)
	CreateCountry(c *masterDatamodel.Country) error
	UpdateCountry(countryID int64, fields map[string]interface{}) error

	ListStates(countryID int64) ([]masterDatamodel.State, error)
	CreateState(s *masterDatamodel.State) error
	UpdateState(stateID int64, fields map[string]interface{}) error

	ListDesignations() ([]userDatamodel.Designation, error)
	GetDesignation(designationID int64) (*userDatamodel.Designation, error)
	CreateDesignation(d *userDatamodel.Designation, actor internal.Actor) error
	UpdateDesignation(d *userDatamodel.Designation, fields map[string]interface{}, actor internal.Actor) error
	SoftDeleteDesignation(designationID int64, actor internal.Actor) error
	HardDeleteDesignation(designationID int64, actor internal.Actor) error
}
