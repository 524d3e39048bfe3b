package user

import (
	"errors"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("duplicate user")
)

// Repository persists user rows. Mutations that must leave an audit trail take
// the acting admin and write the history row in the same transaction.
type Repository interface {
	GetByID(userID string) (*userDatamodel.User, error)
	List(params ListParams) ([]userDatamodel.User, int64, error)

	Create(u *userDatamodel.User, actor internal.Actor) error
	Update(u *userDatamodel.User, fields map[string]interface{}, actor internal.Actor) error
	SoftDelete(userID string, actor internal.Actor) error
	// HardDelete removes the row permanently. Privileged path, no soft-delete
	// semantics, still leaves the history trail behind.
	HardDelete(userID string, actor internal.Actor) error
}

type ListParams struct {
	Search   string
	Page     int
	PageSize int
}

func (p ListParams) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}

func (p ListParams) Limit() int {
	if p.PageSize < 1 || p.PageSize > 100 {
		return 20
	}
	return p.PageSize
}

// Profile is the outward view of a user row. Credential and OTP state never
// leave the service.
type Profile struct {
	UserID          string     `json:"user_id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	PhoneNumber     string     `json:"phone_number,omitempty"`
	Designation     string     `json:"designation,omitempty"`
	DesignationID   *int64     `json:"designation_id,omitempty"`
	IsActive        bool       `json:"is_active"`
	IsStaff         bool       `json:"is_staff"`
	IsSuperuser     bool       `json:"is_superuser"`
	IsEmailVerified bool       `json:"is_email_verified"`
	PermanentLock   bool       `json:"permanent_lock"`
	LockedUntil     *time.Time `json:"locked_until,omitempty"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	DateJoined      time.Time  `json:"date_joined"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func ProfileFromDataModel(u *userDatamodel.User) *Profile {
	p := &Profile{
		UserID:          u.UserID,
		Username:        u.Username,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		PhoneNumber:     u.PhoneNumber,
		DesignationID:   u.DesignationID,
		IsActive:        u.IsActive,
		IsStaff:         u.IsStaff,
		IsSuperuser:     u.IsSuperuser,
		IsEmailVerified: u.IsEmailVerified,
		PermanentLock:   u.PermanentLock,
		LockedUntil:     u.LockedUntil,
		LastLogin:       u.LastLogin,
		DateJoined:      u.DateJoined,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if u.Designation != nil {
		p.Designation = u.Designation.Name
	}
	return p
}
