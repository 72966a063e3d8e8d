package services

import (
	"strings"
	"time"

	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/utils"
	"gorm.io/gorm"
)

// Recovery scoring weights: candidate tabs at the inferred table are ranked
// by similarity to the orphaned orders.
const (
	recoveryScoreNameMatch = 3
	recoveryScorePaxMatch  = 2
)

// ScoreTabMatch rates how well a candidate tab matches the customer name
// and party size reconstructed from orders. Pure function.
func ScoreTabMatch(tab *models.Tab, customerName string, paxCount int) int {
	score := 0
	if customerName != "" && strings.EqualFold(tab.CustomerName, customerName) {
		score += recoveryScoreNameMatch
	}
	if paxCount > 0 && tab.PaxCount == paxCount {
		score += recoveryScorePaxMatch
	}
	return score
}

// bestMatchingTabs returns the candidates sharing the highest positive
// score, preserving input order.
func bestMatchingTabs(candidates []models.Tab, customerName string, paxCount int) []models.Tab {
	best := 0
	for i := range candidates {
		if s := ScoreTabMatch(&candidates[i], customerName, paxCount); s > best {
			best = s
		}
	}
	if best == 0 {
		return nil
	}

	var matched []models.Tab
	for i := range candidates {
		if ScoreTabMatch(&candidates[i], customerName, paxCount) == best {
			matched = append(matched, candidates[i])
		}
	}
	return matched
}

// recoverAndClose is the repair path for closures whose tab document is
// missing or inconsistent: reconstruct the tab from the orders that
// reference it, close the best-matching tab rows at the inferred table,
// mark the orders cleaned and reconcile the table. tableHint is the
// caller-supplied table id, used when the orders do not name one.
func (tc *TabCloser) recoverAndClose(businessID, rawTabID, tableHint string) (*CloseResult, error) {
	tabID, _ := SplitCompositeTabID(rawTabID)

	var orders []models.Order
	err := tc.DB.Where(
		"(dine_in_tab_id = ? OR tab_id = ? OR dine_in_tab_id = ? OR tab_id = ?) AND status <> ?",
		tabID, tabID, rawTabID, rawTabID, models.OrderStatusCancelled).
		Find(&orders).Error
	if err != nil {
		return nil, wrapInternal(err)
	}
	if len(orders) == 0 {
		return nil, E(KindNotFound, "tab %s not found and no orders reference it", tabID)
	}

	// The first order anchors the reconstruction.
	anchor := orders[0]
	tableID := anchor.TableID
	if tableID == "" {
		tableID = tableHint
	}
	if businessID == "" {
		businessID = anchor.BusinessID
	}

	totalPax := 0
	for _, order := range orders {
		totalPax += order.PaxCount
	}
	if totalPax == 0 {
		totalPax = anchor.PaxCount
	}

	result := &CloseResult{TabID: tabID, TableID: tableID, Recovered: true}

	err = utils.RunTransactional(tc.DB, func(tx *gorm.DB) error {
		candidates, err := tc.Store.FindOpenByTable(lockForUpdate(tx), businessID, tableID,
			models.TabStatusActive, models.TabStatusInactive,
			models.TabStatusLockedForPayment, models.TabStatusPaymentInitiated)
		if err != nil {
			return err
		}

		matched := bestMatchingTabs(candidates, anchor.CustomerName, totalPax)
		now := time.Now()
		for i := range matched {
			matched[i].Status = models.TabStatusCompleted
			matched[i].ClosedAt = &now
			if err := tc.Store.Save(tx, &matched[i]); err != nil {
				return err
			}
			result.PaxReleased += matched[i].PaxCount
			result.TotalCollected += matched[i].PaidAmount
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	tc.markOrdersCleaned(tabID)
	if rawTabID != tabID {
		tc.markOrdersCleaned(rawTabID)
	}
	if _, reconErr := tc.Reconciler.RecalculateAndUpdateTable(businessID, tableID); reconErr != nil {
		utils.ErrorLogger.Printf("Table reconciliation after recovering tab %s failed: %v", tabID, reconErr)
	}

	utils.InfoLogger.Printf("Recovered and closed tab %s from %d orphaned orders at table %s",
		tabID, len(orders), tableID)
	return result, nil
}
