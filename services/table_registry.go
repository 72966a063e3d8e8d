package services

import (
	"strings"

	"github.com/dinetap/dinein-app/models"
	"gorm.io/gorm"
)

// TableRegistry resolves physical tables and applies capacity/state updates.
type TableRegistry struct {
	DB *gorm.DB
}

func NewTableRegistry(db *gorm.DB) *TableRegistry {
	return &TableRegistry{DB: db}
}

// NextTableStatus is the occupancy transition function. needs_cleaning is a
// one-way latch here: it is never left through an occupancy update, only
// through FinishCleaning.
func NextTableStatus(current string, nextPax, maxCapacity int) string {
	if current == models.TableStatusNeedsCleaning {
		return models.TableStatusNeedsCleaning
	}
	switch {
	case maxCapacity > 0 && nextPax >= maxCapacity:
		return models.TableStatusFull
	case nextPax > 0:
		return models.TableStatusOccupied
	default:
		return models.TableStatusAvailable
	}
}

// ResolveTable matches a table identifier case-insensitively within a
// business. The scan is O(n) over the business's tables, which is fine at
// restaurant scale. Soft-deleted rows are skipped by gorm.
func (tr *TableRegistry) ResolveTable(tx *gorm.DB, businessID, tableID string) (*models.Table, error) {
	if tableID == "" {
		return nil, E(KindInvalidArgument, "table id is required")
	}
	if tx == nil {
		tx = tr.DB
	}

	var tables []models.Table
	if err := tx.Where("business_id = ?", businessID).Find(&tables).Error; err != nil {
		return nil, wrapInternal(err)
	}

	for i := range tables {
		if strings.EqualFold(tables[i].TableID, tableID) {
			return &tables[i], nil
		}
	}

	return nil, E(KindNotFound, "table %s not found for business %s", tableID, businessID)
}

// ResolveTableForUpdate is ResolveTable with a row lock on the matched row,
// so a capacity check-then-write serializes against concurrent writers.
// Must run inside a transaction.
func (tr *TableRegistry) ResolveTableForUpdate(tx *gorm.DB, businessID, tableID string) (*models.Table, error) {
	table, err := tr.ResolveTable(tx, businessID, tableID)
	if err != nil {
		return nil, err
	}

	var locked models.Table
	if err := lockForUpdate(tx).First(&locked, table.ID).Error; err != nil {
		return nil, wrapInternal(err)
	}
	return &locked, nil
}

// UpdateOccupancy writes the new pax count and the state it implies.
func (tr *TableRegistry) UpdateOccupancy(tx *gorm.DB, table *models.Table, nextPax int) error {
	if nextPax < 0 {
		nextPax = 0
	}

	table.CurrentPax = nextPax
	table.Status = NextTableStatus(table.Status, nextPax, table.MaxCapacity)

	if err := tx.Model(&models.Table{}).Where("id = ?", table.ID).Updates(map[string]interface{}{
		"current_pax": table.CurrentPax,
		"status":      table.Status,
	}).Error; err != nil {
		return wrapInternal(err)
	}
	return nil
}

// MarkNeedsCleaning sets the staff-visible cleaning latch.
func (tr *TableRegistry) MarkNeedsCleaning(tx *gorm.DB, table *models.Table) error {
	if tx == nil {
		tx = tr.DB
	}
	table.Status = models.TableStatusNeedsCleaning
	if err := tx.Model(&models.Table{}).Where("id = ?", table.ID).
		Update("status", models.TableStatusNeedsCleaning).Error; err != nil {
		return wrapInternal(err)
	}
	return nil
}

// FinishCleaning is the explicit cleaning-completed action, the only way out
// of needs_cleaning. The next state is recomputed from the cached pax count.
func (tr *TableRegistry) FinishCleaning(tx *gorm.DB, table *models.Table) error {
	if tx == nil {
		tx = tr.DB
	}
	if table.Status != models.TableStatusNeedsCleaning {
		return E(KindConflict, "table %s is not waiting for cleaning", table.TableID)
	}

	next := NextTableStatus(models.TableStatusAvailable, table.CurrentPax, table.MaxCapacity)
	table.Status = next
	if err := tx.Model(&models.Table{}).Where("id = ?", table.ID).
		Update("status", next).Error; err != nil {
		return wrapInternal(err)
	}
	return nil
}
