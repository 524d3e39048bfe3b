package user

import (
	"strings"

	"github.com/frahmantamala/college-erp/internal/core/common/validation"
)

type CreateUserDTO struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	PhoneNumber   string `json:"phone_number"`
	DesignationID *int64 `json:"designation_id"`
	IsStaff       bool   `json:"is_staff"`
	IsSuperuser   bool   `json:"is_superuser"`
}

func (d *CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().MaxLength(32)
	v.Field("username", d.Username).Required().MaxLength(150)
	v.Field("email", d.Email).Required().Email().MaxLength(254)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(128)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO carries partial profile updates. Nil pointers leave the
// current value untouched.
type UpdateUserDTO struct {
	Email         *string `json:"email"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	PhoneNumber   *string `json:"phone_number"`
	DesignationID *int64  `json:"designation_id"`
	IsActive      *bool   `json:"is_active"`
	IsStaff       *bool   `json:"is_staff"`
}

func (d *UpdateUserDTO) Validate() error {
	if d.Email != nil {
		if err := validation.ValidateEmail(strings.TrimSpace(*d.Email)); err != nil {
			return err
		}
	}
	return nil
}

type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}
