package audit

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/college-erp/internal"
	auditDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// Entity types with a dedicated history table.
const (
	EntityUser        = "user"
	EntityDesignation = "designation"
)

// Entry is one append-only audit record. ActionAt defaults to now when zero.
type Entry struct {
	EntityType string
	EntityID   string
	Action     string
	Actor      internal.Actor
	OldData    auditDatamodel.Snapshot
	NewData    auditDatamodel.Snapshot
	ActionAt   time.Time
}

// Recorder appends history rows. Record runs against the caller's *gorm.DB so
// a soft delete and its history row commit in the same transaction.
type Recorder interface {
	Record(tx *gorm.DB, entry Entry) error
}

type GormRecorder struct {
	logger *slog.Logger
}

func NewGormRecorder(logger *slog.Logger) *GormRecorder {
	return &GormRecorder{logger: logger}
}

func (r *GormRecorder) Record(tx *gorm.DB, entry Entry) error {
	if entry.ActionAt.IsZero() {
		entry.ActionAt = time.Now()
	}

	switch entry.EntityType {
	case EntityUser:
		record := auditDatamodel.UserHistory{
			UserID:   entry.EntityID,
			Action:   entry.Action,
			ActionBy: entry.Actor.Ref(),
			ActionAt: entry.ActionAt,
			OldData:  entry.OldData,
			NewData:  entry.NewData,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record user history: %w", err)
		}
	case EntityDesignation:
		designationID, err := strconv.ParseInt(entry.EntityID, 10, 64)
		if err != nil {
			return fmt.Errorf("record designation history: bad entity id %q: %w", entry.EntityID, err)
		}
		record := auditDatamodel.DesignationHistory{
			DesignationID: designationID,
			Action:        entry.Action,
			ActionBy:      entry.Actor.Ref(),
			ActionAt:      entry.ActionAt,
			OldData:       entry.OldData,
			NewData:       entry.NewData,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record designation history: %w", err)
		}
	default:
		return fmt.Errorf("record history: unknown entity type %q", entry.EntityType)
	}

	r.logger.Debug("history recorded",
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
		"action", entry.Action,
		"action_by", entry.Actor.Ref())

	return nil
}
