package models

import (
	"time"

	"gorm.io/gorm"
)

// Table states. needs_cleaning is a one-way latch: occupancy updates never
// clear it, only an explicit cleaning-completed action does.
const (
	TableStatusAvailable     = "available"
	TableStatusOccupied      = "occupied"
	TableStatusFull          = "full"
	TableStatusNeedsCleaning = "needs_cleaning"
)

type Table struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BusinessID  string         `gorm:"type:varchar(64);index;not null" json:"business_id"`
	TableID     string         `gorm:"type:varchar(50);not null" json:"table_id"` // matched case-insensitively
	MaxCapacity int            `gorm:"not null;default:0" json:"max_capacity"`
	CurrentPax  int            `gorm:"not null;default:0" json:"current_pax"`
	Status      string         `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
