package models

import "time"

// Order statuses the engine cares about. Orders are created by the ordering
// flow; the engine only aggregates them and marks them cleaned on closure.
const (
	OrderStatusCancelled = "cancelled"

	OrderPaymentStatusPaid    = "paid"
	OrderPaymentStatusPending = "pending"
)

type Order struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BusinessID    string     `gorm:"type:varchar(64);index" json:"business_id"`
	TableID       string     `gorm:"type:varchar(50);index" json:"table_id"`
	DineInTabID   string     `gorm:"type:varchar(64);index" json:"dine_in_tab_id"`
	TabID         string     `gorm:"type:varchar(64);index" json:"tab_id"` // legacy reference column
	CustomerName  string     `gorm:"type:varchar(100)" json:"customer_name"`
	PaxCount      int        `gorm:"not null;default:0" json:"pax_count"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending_payment'" json:"status"`
	PaymentStatus string     `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	TotalAmount   float64    `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	Cleaned       bool       `gorm:"not null;default:false" json:"cleaned"`
	CleanedAt     *time.Time `json:"cleaned_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}
