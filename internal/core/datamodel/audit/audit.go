package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Action values recorded in history tables.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Fields is embedded by every audited entity. Soft delete flips IsDeleted;
// rows are only removed by the privileged hard-delete path.
type Fields struct {
	CreatedBy string     `gorm:"column:created_by" json:"created_by"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedBy string     `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedBy *string    `gorm:"column:deleted_by" json:"deleted_by,omitempty"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	IsDeleted bool       `gorm:"column:is_deleted;default:false" json:"is_deleted"`
}

// Snapshot is the JSON old/new state stored on a history row.
type Snapshot map[string]interface{}

func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *Snapshot) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("audit: unsupported snapshot column type")
	}
}

// UserHistory is the append-only audit trail for user rows.
type UserHistory struct {
	HistoryID int64     `gorm:"primaryKey;column:history_id"`
	UserID    string    `gorm:"column:user_id;not null"`
	Action    string    `gorm:"column:action;not null"`
	ActionBy  string    `gorm:"column:action_by;not null"`
	ActionAt  time.Time `gorm:"column:action_at;not null"`
	OldData   Snapshot  `gorm:"column:old_data;type:jsonb"`
	NewData   Snapshot  `gorm:"column:new_data;type:jsonb"`
}

func (UserHistory) TableName() string {
	return "users_history"
}

// DesignationHistory is the append-only audit trail for designation rows.
type DesignationHistory struct {
	HistoryID     int64     `gorm:"primaryKey;column:history_id"`
	DesignationID int64     `gorm:"column:designation_id;not null"`
	Action        string    `gorm:"column:action;not null"`
	ActionBy      string    `gorm:"column:action_by;not null"`
	ActionAt      time.Time `gorm:"column:action_at;not null"`
	OldData       Snapshot  `gorm:"column:old_data;type:jsonb"`
	NewData       Snapshot  `gorm:"column:new_data;type:jsonb"`
}

func (DesignationHistory) TableName() string {
	return "designations_history"
}
