package services

import (
	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/utils"
	"gorm.io/gorm"
)

// Reconciler recomputes a table's cached occupancy from the set of still
// open tabs. It is the convergence point after every closure, cancellation
// or table exit, safe to call redundantly.
type Reconciler struct {
	DB       *gorm.DB
	Registry *TableRegistry
	Store    *TabStore
}

func NewReconciler(db *gorm.DB, registry *TableRegistry, store *TabStore) *Reconciler {
	return &Reconciler{DB: db, Registry: registry, Store: store}
}

// RecalculateAndUpdateTable re-queries open tabs at the table, sums their
// pax counts and writes the sum back as current_pax with the state it
// implies. A needs_cleaning latch survives the update.
func (r *Reconciler) RecalculateAndUpdateTable(businessID, tableID string) (*models.Table, error) {
	var result *models.Table

	err := utils.RunTransactional(r.DB, func(tx *gorm.DB) error {
		table, err := r.Registry.ResolveTableForUpdate(tx, businessID, tableID)
		if err != nil {
			return err
		}

		openTabs, err := r.Store.FindOpenByTable(lockForUpdate(tx), businessID, table.TableID,
			models.TabStatusActive, models.TabStatusInactive)
		if err != nil {
			return err
		}

		totalPax := 0
		for _, tab := range openTabs {
			totalPax += tab.PaxCount
		}

		if err := r.Registry.UpdateOccupancy(tx, table, totalPax); err != nil {
			return err
		}
		result = table
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return result, nil
}
