package master

import (
	auditDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/audit"
)

type Country struct {
	CountryID int64  `gorm:"primaryKey;column:country_id"`
	Name      string `gorm:"column:name;uniqueIndex;not null"`
	Code      string `gorm:"column:code;uniqueIndex;not null"`
	IsActive  bool   `gorm:"column:is_active;default:true"`

	auditDatamodel.Fields
}

func (Country) TableName() string {
	return "countries"
}

type State struct {
	StateID   int64  `gorm:"primaryKey;column:state_id"`
	CountryID int64  `gorm:"column:country_id;index;not null"`
	Name      string `gorm:"column:name;not null"`
	Code      string `gorm:"column:code;not null"`
	IsActive  bool   `gorm:"column:is_active;default:true"`

	auditDatamodel.Fields
}

func (State) TableName() string {
	return "states"
}
