package models

import "time"

// Business types, probed in this order when resolving a business id.
const (
	BusinessTypeRestaurant   = "restaurant"
	BusinessTypeShop         = "shop"
	BusinessTypeStreetVendor = "street_vendor"
)

type Business struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"business_id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Type       string    `gorm:"type:varchar(20);not null;default:'restaurant'" json:"type"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
