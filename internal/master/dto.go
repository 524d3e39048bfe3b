package master

import (
	"strings"

	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

type CountryDTO struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (d *CountryDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Msg: "name is required"}
	}
	if strings.TrimSpace(d.Code) == "" {
		return ValidationError{Msg: "code is required"}
	}
	return nil
}

type StateDTO struct {
	CountryID int64  `json:"country_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
}

func (d *StateDTO) Validate() error {
	if d.CountryID <= 0 {
		return ValidationError{Msg: "country_id is required"}
	}
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Msg: "name is required"}
	}
	if strings.TrimSpace(d.Code) == "" {
		return ValidationError{Msg: "code is required"}
	}
	return nil
}

type DesignationDTO struct {
	Name        string                      `json:"name"`
	Code        string                      `json:"code"`
	Description string                      `json:"description"`
	Permissions userDatamodel.PermissionMap `json:"permissions"`
}

func (d *DesignationDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Msg: "name is required"}
	}
	if strings.TrimSpace(d.Code) == "" {
		return ValidationError{Msg: "code is required"}
	}
	return nil
}

// UpdateDesignationDTO carries partial updates; nil means untouched.
type UpdateDesignationDTO struct {
	Name        *string                      `json:"name"`
	Description *string                      `json:"description"`
	Permissions *userDatamodel.PermissionMap `json:"permissions"`
	IsActive    *bool                        `json:"is_active"`
}

type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}
