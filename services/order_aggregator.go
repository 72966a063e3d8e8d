package services

import (
	"math"
	"time"

	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/utils"
	"gorm.io/gorm"
)

// AmountTolerance is the currency rounding slack allowed between cached and
// recomputed totals.
const AmountTolerance = 0.01

// OrderAggregator recomputes a tab's bill from its underlying orders. This
// is the single source of truth for how much is owed; the cached amounts on
// the tab are advisory.
type OrderAggregator struct {
	DB    *gorm.DB
	Store *TabStore
}

func NewOrderAggregator(db *gorm.DB, store *TabStore) *OrderAggregator {
	return &OrderAggregator{DB: db, Store: store}
}

// ordersForTab gathers all non-cancelled orders referencing the tab through
// either the current dine_in_tab_id column or the legacy tab_id column.
func ordersForTab(tx *gorm.DB, tabID string) ([]models.Order, error) {
	var orders []models.Order
	err := tx.Where("(dine_in_tab_id = ? OR tab_id = ?) AND status <> ?",
		tabID, tabID, models.OrderStatusCancelled).
		Find(&orders).Error
	if err != nil {
		return nil, wrapInternal(err)
	}
	return orders, nil
}

// sumOrderAmounts folds the order list into (total, paid).
func sumOrderAmounts(orders []models.Order) (total, paid float64) {
	for _, order := range orders {
		total += order.TotalAmount
		if order.PaymentStatus == models.OrderPaymentStatusPaid {
			paid += order.TotalAmount
		}
	}
	return total, paid
}

// RecalculateTabTotals re-reads the tab and every order tied to it inside
// one transaction and writes back total/paid/pending with a recalculation
// stamp. Idempotent.
func (oa *OrderAggregator) RecalculateTabTotals(businessID, tabID string) (*models.Tab, error) {
	var result *models.Tab

	err := utils.RunTransactional(oa.DB, func(tx *gorm.DB) error {
		tab, _, err := oa.Store.Find(lockForUpdate(tx), businessID, tabID)
		if err != nil {
			return err
		}

		orders, err := ordersForTab(tx, tab.TabID)
		if err != nil {
			return err
		}

		total, paid := sumOrderAmounts(orders)
		now := time.Now()

		tab.TotalAmount = total
		tab.PaidAmount = paid
		tab.PendingAmount = total - paid
		tab.LastRecalculatedAt = &now

		if err := oa.Store.Save(tx, tab); err != nil {
			return err
		}
		result = tab
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return result, nil
}

// IntegrityReport captures the drift between cached and recomputed totals.
type IntegrityReport struct {
	TabID         string  `json:"tab_id"`
	IsValid       bool    `json:"is_valid"`
	CachedTotal   float64 `json:"cached_total"`
	CachedPaid    float64 `json:"cached_paid"`
	CachedPending float64 `json:"cached_pending"`
	TotalAmount   float64 `json:"total_amount"`
	PaidAmount    float64 `json:"paid_amount"`
	PendingAmount float64 `json:"pending_amount"`
}

// VerifyTabIntegrity captures the cached totals, reruns the recalculation
// and flags any component drifting beyond the rounding tolerance. A mismatch
// is a logged warning for callers, never a blocking failure.
func (oa *OrderAggregator) VerifyTabIntegrity(businessID, tabID string) (*IntegrityReport, error) {
	tab, _, err := oa.Store.Find(oa.DB, businessID, tabID)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{
		TabID:         tab.TabID,
		CachedTotal:   tab.TotalAmount,
		CachedPaid:    tab.PaidAmount,
		CachedPending: tab.PendingAmount,
	}

	recalced, err := oa.RecalculateTabTotals(businessID, tabID)
	if err != nil {
		return nil, err
	}

	report.TotalAmount = recalced.TotalAmount
	report.PaidAmount = recalced.PaidAmount
	report.PendingAmount = recalced.PendingAmount
	report.IsValid = math.Abs(report.CachedTotal-recalced.TotalAmount) <= AmountTolerance &&
		math.Abs(report.CachedPaid-recalced.PaidAmount) <= AmountTolerance &&
		math.Abs(report.CachedPending-recalced.PendingAmount) <= AmountTolerance

	return report, nil
}
