package services

import (
	"time"

	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/utils"
	"gorm.io/gorm"
)

// TabService owns the tab lifecycle: create/join, seat joins, payment
// locking and status reads. Every check-then-write runs inside one
// transaction; invariants are enforced only through the store's transaction
// retry, never through in-process locks.
type TabService struct {
	DB         *gorm.DB
	Resolver   *BusinessResolver
	Registry   *TableRegistry
	Store      *TabStore
	Aggregator *OrderAggregator
}

func NewTabService(db *gorm.DB) *TabService {
	store := NewTabStore()
	return &TabService{
		DB:         db,
		Resolver:   NewBusinessResolver(db),
		Registry:   NewTableRegistry(db),
		Store:      store,
		Aggregator: NewOrderAggregator(db, store),
	}
}

// seatHoldingStatuses are the tab statuses whose seats count against table
// capacity.
var seatHoldingStatuses = []string{
	models.TabStatusActive,
	models.TabStatusLockedForPayment,
	models.TabStatusPaymentInitiated,
}

// TableStatus is the answer to "can I sit down here".
type TableStatus struct {
	HasActiveTab bool          `json:"has_active_tab"`
	Table        *models.Table `json:"table"`
	Tab          *models.Tab   `json:"tab,omitempty"`
}

// GetTableStatus reports whether the table currently has an active tab.
func (ts *TabService) GetTableStatus(businessID, tableID string) (*TableStatus, error) {
	business, err := ts.Resolver.FindBusinessRef(nil, businessID)
	if err != nil {
		return nil, err
	}

	table, err := ts.Registry.ResolveTable(nil, business.BusinessID, tableID)
	if err != nil {
		return nil, err
	}

	tabs, err := ts.Store.FindOpenByTable(ts.DB, business.BusinessID, table.TableID, models.TabStatusActive)
	if err != nil {
		return nil, err
	}

	status := &TableStatus{Table: table}
	if len(tabs) > 0 {
		status.HasActiveTab = true
		// Token stays server-side; the tab is a summary only.
		tabs[0].Token = ""
		status.Tab = &tabs[0]
	}
	return status, nil
}

// CreateOrJoinResult is what a party gets back after claiming seats.
type CreateOrJoinResult struct {
	TabID          string `json:"tab_id"`
	Token          string `json:"token"`
	OccupiedSeats  int    `json:"occupied_seats"`
	AvailableSeats int    `json:"available_seats"`
	Joined         bool   `json:"joined"`
}

// CreateOrJoinTab claims groupSize seats at a table. Inside one transaction
// it sums occupied seats across all seat-holding tabs at the table (the
// capacity-pool model: several tabs share one table's seats), rejects the
// request when the pool would overflow, merges the party into an existing
// active tab when there is one, and otherwise opens a fresh tab with a new
// token.
func (ts *TabService) CreateOrJoinTab(businessID, tableID string, capacity, groupSize int, customerName string) (*CreateOrJoinResult, error) {
	if tableID == "" {
		return nil, E(KindInvalidArgument, "table id is required")
	}
	if groupSize <= 0 {
		return nil, E(KindInvalidArgument, "group size must be positive")
	}
	if capacity <= 0 {
		return nil, E(KindInvalidArgument, "capacity must be positive")
	}

	var result *CreateOrJoinResult

	err := utils.RunTransactional(ts.DB, func(tx *gorm.DB) error {
		business, err := ts.Resolver.FindBusinessRef(tx, businessID)
		if err != nil {
			return err
		}

		// The table row may not be registered yet (QR-only setup); when it
		// is, its capacity wins over the caller-supplied snapshot and its
		// row lock serializes concurrent claims.
		effectiveCapacity := capacity
		canonicalTableID := tableID
		table, err := ts.Registry.ResolveTableForUpdate(tx, business.BusinessID, tableID)
		switch {
		case err == nil:
			canonicalTableID = table.TableID
			if table.MaxCapacity > 0 {
				effectiveCapacity = table.MaxCapacity
			}
		case IsKind(err, KindNotFound):
			table = nil
		default:
			return err
		}

		// Locking read: the capacity sum must include tabs committed by a
		// writer we just waited on, not the transaction's opening snapshot.
		tabs, err := ts.Store.FindOpenByTable(lockForUpdate(tx), business.BusinessID, canonicalTableID, seatHoldingStatuses...)
		if err != nil {
			return err
		}

		currentOccupied := 0
		var activeTab *models.Tab
		for i := range tabs {
			currentOccupied += tabs[i].OccupiedSeats
			if activeTab == nil && tabs[i].Status == models.TabStatusActive {
				activeTab = &tabs[i]
			}
		}

		if currentOccupied+groupSize > effectiveCapacity {
			return E(KindCapacityExceeded,
				"table %s has %d of %d seats occupied, cannot seat %d more",
				canonicalTableID, currentOccupied, effectiveCapacity, groupSize)
		}

		if activeTab != nil {
			// Merge the party into the running tab.
			activeTab.OccupiedSeats += groupSize
			activeTab.PaxCount += groupSize
			activeTab.AvailableSeats = effectiveCapacity - (currentOccupied + groupSize)
			if activeTab.AvailableSeats < 0 {
				activeTab.AvailableSeats = 0
			}
			if err := ts.Store.Save(tx, activeTab); err != nil {
				return err
			}
			if err := appendJoinRecord(tx, activeTab.TabID, customerName); err != nil {
				return err
			}

			result = &CreateOrJoinResult{
				TabID:          activeTab.TabID,
				Token:          activeTab.Token,
				OccupiedSeats:  activeTab.OccupiedSeats,
				AvailableSeats: activeTab.AvailableSeats,
				Joined:         true,
			}
		} else {
			tab := &models.Tab{
				TabID:          utils.NewTabID(),
				BusinessID:     business.BusinessID,
				TableID:        canonicalTableID,
				Status:         models.TabStatusActive,
				Capacity:       effectiveCapacity,
				OccupiedSeats:  groupSize,
				AvailableSeats: effectiveCapacity - (currentOccupied + groupSize),
				PaxCount:       groupSize,
				CustomerName:   customerName,
				Token:          utils.NewTabToken(),
				StorageShape:   TabShapePrimary,
			}
			if err := ts.Store.Save(tx, tab); err != nil {
				return err
			}
			if err := appendJoinRecord(tx, tab.TabID, customerName); err != nil {
				return err
			}

			result = &CreateOrJoinResult{
				TabID:          tab.TabID,
				Token:          tab.Token,
				OccupiedSeats:  tab.OccupiedSeats,
				AvailableSeats: tab.AvailableSeats,
			}
		}

		if table != nil {
			return ts.Registry.UpdateOccupancy(tx, table, currentOccupied+groupSize)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	utils.InfoLogger.Printf("Tab %s at table %s/%s: occupied=%d available=%d joined=%t",
		result.TabID, businessID, tableID, result.OccupiedSeats, result.AvailableSeats, result.Joined)
	return result, nil
}

func appendJoinRecord(tx *gorm.DB, tabID, customerName string) error {
	if customerName == "" {
		return nil
	}
	record := models.TabCustomer{
		TabID:    tabID,
		Name:     customerName,
		JoinedAt: time.Now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return wrapInternal(err)
	}
	return nil
}

// ValidateTabToken is the sole authorization mechanism for anonymous
// diners: the tab must exist and the presented token must match the stored
// one. A tab with an empty stored token can never be mutated this way.
func (ts *TabService) ValidateTabToken(businessID, tabID, token string) (*models.Tab, error) {
	tab, embedded, err := ts.Store.Find(ts.DB, businessID, tabID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		token = embedded
	}
	if tab.Token == "" || tab.Token != token {
		return nil, E(KindUnauthorized, "invalid tab token")
	}
	return tab, nil
}

// JoinTable adds one diner to an existing tab. The seat check and the seat
// increment happen in the same transaction.
func (ts *TabService) JoinTable(businessID, tabID, token, customerName string) error {
	if _, err := ts.ValidateTabToken(businessID, tabID, token); err != nil {
		return err
	}

	err := utils.RunTransactional(ts.DB, func(tx *gorm.DB) error {
		tab, _, err := ts.Store.Find(lockForUpdate(tx), businessID, tabID)
		if err != nil {
			return err
		}
		if tab.IsTerminal() {
			return E(KindNotFound, "tab %s is already closed", tab.TabID)
		}
		if tab.Capacity > 0 && tab.OccupiedSeats >= tab.Capacity {
			return E(KindTableFull, "tab %s already seats %d of %d", tab.TabID, tab.OccupiedSeats, tab.Capacity)
		}

		tab.OccupiedSeats++
		tab.PaxCount++
		if tab.AvailableSeats > 0 {
			tab.AvailableSeats--
		}
		if err := ts.Store.Save(tx, tab); err != nil {
			return err
		}
		return appendJoinRecord(tx, tab.TabID, customerName)
	})
	if err != nil {
		return wrapInternal(err)
	}

	utils.InfoLogger.Printf("Customer %q joined tab %s", customerName, tabID)
	return nil
}

// TabStatus bundles the tab summary with its aggregated bill and orders.
type TabStatus struct {
	Tab    *models.Tab    `json:"tab"`
	Orders []models.Order `json:"orders"`
}

// GetTabStatus returns the tab with a freshly aggregated bill and the order
// list backing it.
func (ts *TabService) GetTabStatus(businessID, tabID string) (*TabStatus, error) {
	tab, err := ts.Aggregator.RecalculateTabTotals(businessID, tabID)
	if err != nil {
		return nil, err
	}

	orders, err := ordersForTab(ts.DB, tab.TabID)
	if err != nil {
		return nil, err
	}

	tab.Token = ""
	return &TabStatus{Tab: tab, Orders: orders}, nil
}

// InitiatePayment locks the tab for payment. At most one payment can be in
// flight: a second initiation while locked fails with conflict. When the
// freshly recalculated pending amount turns out to be zero or negative the
// lock is reverted and the call fails with nothing_to_pay.
func (ts *TabService) InitiatePayment(businessID, tabID, token, paymentMethod string) (float64, error) {
	if _, err := ts.ValidateTabToken(businessID, tabID, token); err != nil {
		return 0, err
	}

	err := utils.RunTransactional(ts.DB, func(tx *gorm.DB) error {
		// Locking read so two concurrent initiations serialize on the tab
		// row; the loser then observes the winner's lock.
		tab, _, err := ts.Store.Find(lockForUpdate(tx), businessID, tabID)
		if err != nil {
			return err
		}
		if tab.IsLocked() {
			return E(KindConflict, "payment already in progress for tab %s", tab.TabID)
		}
		if tab.IsTerminal() {
			return E(KindConflict, "tab %s is already closed", tab.TabID)
		}

		now := time.Now()
		tab.Status = models.TabStatusLockedForPayment
		tab.PaymentMethod = paymentMethod
		tab.PaymentInitiatedAt = &now
		tab.PaymentFailedReason = ""
		return ts.Store.Save(tx, tab)
	})
	if err != nil {
		return 0, wrapInternal(err)
	}

	// Post-commit: recompute the bill; with nothing owed the lock is
	// pointless and is rolled back.
	recalced, err := ts.Aggregator.RecalculateTabTotals(businessID, tabID)
	if err != nil {
		return 0, err
	}
	if recalced.PendingAmount <= AmountTolerance {
		if unlockErr := ts.UnlockPayment(businessID, tabID, token, "nothing to pay"); unlockErr != nil {
			utils.ErrorLogger.Printf("Failed to revert empty payment lock on tab %s: %v", tabID, unlockErr)
		}
		return 0, E(KindNothingToPay, "tab %s has no pending balance", tabID)
	}

	utils.InfoLogger.Printf("Payment initiated on tab %s via %s, pending %s",
		tabID, paymentMethod, utils.FormatCurrencyINR(recalced.PendingAmount))
	return recalced.PendingAmount, nil
}

// UnlockPayment reverts an abandoned or failed payment attempt. Unlocking a
// tab that is already active is a no-op success, so retries are harmless.
func (ts *TabService) UnlockPayment(businessID, tabID, token, reason string) error {
	if _, err := ts.ValidateTabToken(businessID, tabID, token); err != nil {
		return err
	}

	err := utils.RunTransactional(ts.DB, func(tx *gorm.DB) error {
		tab, _, err := ts.Store.Find(lockForUpdate(tx), businessID, tabID)
		if err != nil {
			return err
		}
		if tab.Status == models.TabStatusActive {
			// Already unlocked, idempotent.
			return nil
		}
		if tab.IsTerminal() {
			return E(KindConflict, "tab %s is already closed", tab.TabID)
		}

		tab.Status = models.TabStatusActive
		tab.PaymentMethod = ""
		tab.PaymentInitiatedAt = nil
		tab.PaymentFailedReason = reason
		return ts.Store.Save(tx, tab)
	})
	if err != nil {
		return wrapInternal(err)
	}

	utils.InfoLogger.Printf("Payment unlocked on tab %s (%s)", tabID, reason)
	return nil
}
