package user

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	auditDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/audit"
)

// DefaultMaxOTPTry is the per-user OTP attempt cap applied at creation. The
// stored column is authoritative so an admin can tune it per account.
const DefaultMaxOTPTry = 3

// PermissionMap is the designation permission payload:
// module name -> action name -> allowed.
type PermissionMap map[string]map[string]bool

func (p PermissionMap) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(PermissionMap{})
	}
	return json.Marshal(p)
}

func (p *PermissionMap) Scan(value interface{}) error {
	if value == nil {
		*p = PermissionMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("user: unsupported permissions column type")
	}
}

// Allows reports whether the map grants an action on a module.
func (p PermissionMap) Allows(module, action string) bool {
	actions, ok := p[module]
	if !ok {
		return false
	}
	return actions[action]
}

type Designation struct {
	DesignationID int64         `gorm:"primaryKey;column:designation_id"`
	Name          string        `gorm:"column:name;uniqueIndex;not null"`
	Code          string        `gorm:"column:code;uniqueIndex;not null"`
	Description   string        `gorm:"column:description"`
	Permissions   PermissionMap `gorm:"column:permissions;type:jsonb"`
	IsActive      bool          `gorm:"column:is_active;default:true"`

	auditDatamodel.Fields
}

func (Designation) TableName() string {
	return "designations"
}

type User struct {
	UserID       string `gorm:"primaryKey;column:user_id"`
	Username     string `gorm:"column:username;uniqueIndex;not null"`
	Email        string `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	FirstName    string `gorm:"column:first_name"`
	LastName     string `gorm:"column:last_name"`
	PhoneNumber  string `gorm:"column:phone_number"`

	DesignationID *int64       `gorm:"column:designation_id"`
	Designation   *Designation `gorm:"foreignKey:DesignationID;references:DesignationID"`

	IsActive        bool `gorm:"column:is_active;default:true"`
	IsStaff         bool `gorm:"column:is_staff;default:false"`
	IsSuperuser     bool `gorm:"column:is_superuser;default:false"`
	IsEmailVerified bool `gorm:"column:is_email_verified;default:false"`

	FailedLoginAttempts int        `gorm:"column:failed_login_attempts;default:0"`
	LastFailedLogin     *time.Time `gorm:"column:last_failed_login"`
	LockedUntil         *time.Time `gorm:"column:locked_until"`
	PermanentLock       bool       `gorm:"column:permanent_lock;default:false"`
	LockReason          *string    `gorm:"column:lock_reason"`

	OTPCode      *string    `gorm:"column:otp_code"`
	OTPExpiry    *time.Time `gorm:"column:otp_expiry"`
	OTPCreatedAt *time.Time `gorm:"column:otp_created_at"`
	OTPAttempts  int        `gorm:"column:otp_attempts;default:0"`
	MaxOTPTry    int        `gorm:"column:max_otp_try;default:3"`
	OTPVerified  bool       `gorm:"column:otp_verified;default:false"`

	LastLogin         *time.Time `gorm:"column:last_login"`
	LastLoginIP       *string    `gorm:"column:last_login_ip"`
	PasswordChangedAt *time.Time `gorm:"column:password_changed_at"`
	DateJoined        time.Time  `gorm:"column:date_joined"`

	auditDatamodel.Fields
}

func (User) TableName() string {
	return "users"
}

// Snapshot flattens the auditable identity fields for history rows. Secrets
// and transient OTP state never appear in snapshots.
func (u *User) Snapshot() auditDatamodel.Snapshot {
	snap := auditDatamodel.Snapshot{
		"username":          u.Username,
		"email":             u.Email,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"is_active":         u.IsActive,
		"is_staff":          u.IsStaff,
		"is_superuser":      u.IsSuperuser,
		"is_email_verified": u.IsEmailVerified,
	}
	if u.DesignationID != nil {
		snap["designation_id"] = *u.DesignationID
	}
	return snap
}

// Snapshot flattens the auditable designation fields for history rows.
func (d *Designation) Snapshot() auditDatamodel.Snapshot {
	return auditDatamodel.Snapshot{
		"name":        d.Name,
		"code":        d.Code,
		"description": d.Description,
		"permissions": d.Permissions,
		"is_active":   d.IsActive,
	}
}

type PasswordHistory struct {
	PasswordHistoryID int64     `gorm:"primaryKey;column:password_history_id"`
	UserID            string    `gorm:"column:user_id;index;not null"`
	PasswordHash      string    `gorm:"column:password_hash;not null"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (PasswordHistory) TableName() string {
	return "password_history"
}
