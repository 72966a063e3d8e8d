package services

import (
	"time"

	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/utils"
	"gorm.io/gorm"
)

// TabCloser settles and closes tabs. Closure is the most delicate
// operation: the balance re-check and the status flip share one
// transaction, while order cleanup and table reconciliation run best-effort
// after commit.
type TabCloser struct {
	DB         *gorm.DB
	Resolver   *BusinessResolver
	Registry   *TableRegistry
	Store      *TabStore
	Aggregator *OrderAggregator
	Reconciler *Reconciler
}

func NewTabCloser(db *gorm.DB) *TabCloser {
	registry := NewTableRegistry(db)
	store := NewTabStore()
	return &TabCloser{
		DB:         db,
		Resolver:   NewBusinessResolver(db),
		Registry:   registry,
		Store:      store,
		Aggregator: NewOrderAggregator(db, store),
		Reconciler: NewReconciler(db, registry, store),
	}
}

// CloseResult reports what a closure released.
type CloseResult struct {
	TabID          string  `json:"tab_id"`
	TableID        string  `json:"table_id"`
	TotalCollected float64 `json:"total_collected"`
	PaxReleased    int     `json:"pax_released"`
	Recovered      bool    `json:"recovered"`
}

// CloseTab settles and closes a tab (the "clean table" action).
//
// The tab is looked up through the shape chain; when no tab document exists
// in either shape the closure falls back to the order-derived recovery path.
// With a tab in hand: a non-blocking integrity check runs first, then a
// fresh transaction re-verifies the pending balance and flips the status,
// and finally orders are marked cleaned and the table occupancy reconciled
// best-effort.
func (tc *TabCloser) CloseTab(businessID, tableID, tabID, token string) (*CloseResult, error) {
	if tabID == "" {
		return nil, E(KindInvalidArgument, "tab id is required")
	}

	tab, embeddedToken, err := tc.Store.Find(tc.DB, businessID, tabID)
	if err != nil {
		if IsKind(err, KindNotFound) {
			// Tab and order documents can fall out of sync under partial
			// failures; converge from the orders instead. The caller's table
			// id serves as a hint when the orders carry none.
			return tc.recoverAndClose(businessID, tabID, tableID)
		}
		return nil, err
	}

	if token == "" {
		token = embeddedToken
	}
	if token != "" && (tab.Token == "" || tab.Token != token) {
		return nil, E(KindUnauthorized, "invalid tab token")
	}

	// Pre-closure sanity check; drift is logged, not blocking.
	if report, verifyErr := tc.Aggregator.VerifyTabIntegrity(businessID, tab.TabID); verifyErr != nil {
		utils.ErrorLogger.Printf("Integrity check failed for tab %s: %v", tab.TabID, verifyErr)
	} else if !report.IsValid {
		utils.ErrorLogger.Printf(
			"Tab %s cached totals drifted: total %.2f->%.2f paid %.2f->%.2f pending %.2f->%.2f",
			tab.TabID, report.CachedTotal, report.TotalAmount,
			report.CachedPaid, report.PaidAmount,
			report.CachedPending, report.PendingAmount)
	}

	var result *CloseResult
	err = utils.RunTransactional(tc.DB, func(tx *gorm.DB) error {
		// Locking re-read: the terminal check must see a concurrent closure.
		fresh, _, err := tc.Store.Find(lockForUpdate(tx), businessID, tab.TabID)
		if err != nil {
			return err
		}
		if fresh.IsTerminal() {
			// Already closed by a concurrent request; treat as settled.
			result = closeResultFor(fresh)
			return nil
		}

		orders, err := ordersForTab(tx, fresh.TabID)
		if err != nil {
			return err
		}
		total, paid := sumOrderAmounts(orders)
		pending := total - paid
		if pending > AmountTolerance {
			return E(KindPendingBalance, "tab %s still owes %s",
				fresh.TabID, utils.FormatCurrencyINR(pending))
		}

		now := time.Now()
		fresh.Status = models.TabStatusCompleted
		fresh.ClosedAt = &now
		fresh.TotalAmount = total
		fresh.PaidAmount = paid
		fresh.PendingAmount = pending
		fresh.LastRecalculatedAt = &now
		if err := tc.Store.Save(tx, fresh); err != nil {
			return err
		}

		result = closeResultFor(fresh)
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	// Best-effort follow-ups; their failure never fails the closure.
	tc.markOrdersCleaned(result.TabID)
	if _, reconErr := tc.Reconciler.RecalculateAndUpdateTable(businessID, result.TableID); reconErr != nil {
		utils.ErrorLogger.Printf("Table reconciliation after closing tab %s failed: %v", result.TabID, reconErr)
	}

	utils.InfoLogger.Printf("Tab %s closed at table %s, collected %s, released %d pax",
		result.TabID, result.TableID, utils.FormatCurrencyINR(result.TotalCollected), result.PaxReleased)
	return result, nil
}

func closeResultFor(tab *models.Tab) *CloseResult {
	return &CloseResult{
		TabID:          tab.TabID,
		TableID:        tab.TableID,
		TotalCollected: tab.PaidAmount,
		PaxReleased:    tab.PaxCount,
	}
}

// markOrdersCleaned stamps every order referenced by the tab as cleaned and
// settles their payment status. Idempotent, safe to retry or skip.
func (tc *TabCloser) markOrdersCleaned(tabID string) {
	now := time.Now()
	err := tc.DB.Model(&models.Order{}).
		Where("(dine_in_tab_id = ? OR tab_id = ?) AND status <> ? AND cleaned = ?",
			tabID, tabID, models.OrderStatusCancelled, false).
		Updates(map[string]interface{}{
			"cleaned":        true,
			"cleaned_at":     &now,
			"payment_status": models.OrderPaymentStatusPaid,
		}).Error
	if err != nil {
		utils.ErrorLogger.Printf("Failed to mark orders cleaned for tab %s: %v", tabID, err)
	}
}
