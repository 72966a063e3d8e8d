package models

import "time"

// Tab statuses. payment_initiated is a legacy alias of locked_for_payment
// still present in old rows; it counts as "locked" everywhere.
const (
	TabStatusInactive         = "inactive"
	TabStatusActive           = "active"
	TabStatusLockedForPayment = "locked_for_payment"
	TabStatusPaymentInitiated = "payment_initiated"
	TabStatusCompleted        = "completed"
	TabStatusClosed           = "closed"
)

// Tab is a running bill for one seated party. The same struct backs both
// storage shapes (top-level `tabs` and business-scoped `business_tabs`);
// StorageShape records where a loaded row came from so updates go back to
// the same table.
type Tab struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	TabID               string     `gorm:"type:varchar(64);index;not null" json:"tab_id"`
	BusinessID          string     `gorm:"type:varchar(64);index;not null" json:"business_id"`
	TableID             string     `gorm:"type:varchar(50);index;not null" json:"table_id"`
	Status              string     `gorm:"type:varchar(20);not null;default:'inactive'" json:"status"`
	Capacity            int        `gorm:"not null;default:0" json:"capacity"`
	OccupiedSeats       int        `gorm:"not null;default:0" json:"occupied_seats"`
	AvailableSeats      int        `gorm:"not null;default:0" json:"available_seats"`
	PaxCount            int        `gorm:"not null;default:0" json:"pax_count"`
	CustomerName        string     `gorm:"type:varchar(100)" json:"customer_name"`
	Token               string     `gorm:"type:varchar(64)" json:"-"`
	PaymentMethod       string     `gorm:"type:varchar(30)" json:"payment_method,omitempty"`
	PaymentFailedReason string     `gorm:"type:varchar(255)" json:"payment_failed_reason,omitempty"`
	TotalAmount         float64    `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	PaidAmount          float64    `gorm:"type:decimal(10,2);not null;default:0.00" json:"paid_amount"`
	PendingAmount       float64    `gorm:"type:decimal(10,2);not null;default:0.00" json:"pending_amount"`
	CreatedAt           time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null" json:"last_modified_at"`
	LastRecalculatedAt  *time.Time `json:"last_recalculated_at,omitempty"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
	PaymentInitiatedAt  *time.Time `json:"payment_initiated_at,omitempty"`

	StorageShape string `gorm:"-" json:"-"`
}

// IsLocked reports whether a payment is in flight for this tab.
func (t *Tab) IsLocked() bool {
	return t.Status == TabStatusLockedForPayment || t.Status == TabStatusPaymentInitiated
}

// IsTerminal reports whether the tab left capacity accounting for good.
func (t *Tab) IsTerminal() bool {
	return t.Status == TabStatusCompleted || t.Status == TabStatusClosed
}

// SeatHolding reports whether the tab's seats count toward table capacity.
func (t *Tab) SeatHolding() bool {
	return t.Status == TabStatusActive || t.IsLocked()
}

// TabCustomer is the lightweight join record appended when a diner joins an
// existing tab.
type TabCustomer struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	TabID    string    `gorm:"type:varchar(64);index;not null" json:"tab_id"`
	Name     string    `gorm:"type:varchar(100)" json:"name"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}
