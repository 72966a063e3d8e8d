package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinetap/dinein-app/models"
)

func TestScoreTabMatch(t *testing.T) {
	tab := &models.Tab{CustomerName: "Asha", PaxCount: 3}

	assert.Equal(t, 5, ScoreTabMatch(tab, "asha", 3)) // name (case-insensitive) + pax
	assert.Equal(t, 3, ScoreTabMatch(tab, "Asha", 4))
	assert.Equal(t, 2, ScoreTabMatch(tab, "Ravi", 3))
	assert.Equal(t, 0, ScoreTabMatch(tab, "Ravi", 4))
	assert.Equal(t, 0, ScoreTabMatch(tab, "", 0)) // blanks never match
}

func TestBestMatchingTabs(t *testing.T) {
	candidates := []models.Tab{
		{TabID: "a", CustomerName: "Asha", PaxCount: 2},
		{TabID: "b", CustomerName: "Ravi", PaxCount: 3},
		{TabID: "c", CustomerName: "Asha", PaxCount: 3},
	}

	matched := bestMatchingTabs(candidates, "Asha", 3)
	require.Len(t, matched, 1)
	assert.Equal(t, "c", matched[0].TabID)

	// Ties: every candidate at the top score is closed.
	matched = bestMatchingTabs(candidates, "", 3)
	require.Len(t, matched, 2)
	assert.Equal(t, "b", matched[0].TabID)
	assert.Equal(t, "c", matched[1].TabID)

	assert.Nil(t, bestMatchingTabs(candidates, "Zoya", 9))
	assert.Nil(t, bestMatchingTabs(nil, "Asha", 3))
}

func TestSplitCompositeTabID(t *testing.T) {
	id, token := SplitCompositeTabID("tab_abc::secret123")
	assert.Equal(t, "tab_abc", id)
	assert.Equal(t, "secret123", token)

	id, token = SplitCompositeTabID("tab_abc")
	assert.Equal(t, "tab_abc", id)
	assert.Empty(t, token)
}

// A tab document lost to a partial failure: the orders still reference it,
// and closure must converge from them.
func TestRecoverAndCloseFromOrphanedOrders(t *testing.T) {
	db := setupTestDB(t)
	closer := NewTabCloser(db)

	seedBusiness(t, db, "biz1", models.BusinessTypeRestaurant)
	table := seedTable(t, db, "biz1", "T1", 6)
	require.NoError(t, db.Model(table).Updates(map[string]interface{}{
		"current_pax": 3, "status": models.TableStatusOccupied,
	}).Error)

	// The tab the orders point at does not exist; a similar-looking tab
	// sits at the same table and should be matched and closed.
	require.NoError(t, db.Table(TabShapePrimary).Create(&models.Tab{
		TabID:        "tab_surviving",
		BusinessID:   "biz1",
		TableID:      "T1",
		Status:       models.TabStatusActive,
		CustomerName: "Asha",
		PaxCount:     3,
		PaidAmount:   75,
	}).Error)

	order := seedOrder(t, db, models.Order{
		DineInTabID:   "tab_ghost",
		BusinessID:    "biz1",
		TableID:       "T1",
		CustomerName:  "Asha",
		PaxCount:      3,
		Status:        "served",
		PaymentStatus: models.OrderPaymentStatusPaid,
		TotalAmount:   75,
	})

	result, err := closer.CloseTab("biz1", "", "tab_ghost", "")
	require.NoError(t, err)
	assert.True(t, result.Recovered)
	assert.Equal(t, "T1", result.TableID)
	assert.Equal(t, 3, result.PaxReleased)
	assert.InDelta(t, 75, result.TotalCollected, 0.001)

	var closedTab models.Tab
	require.NoError(t, db.Table(TabShapePrimary).Where("tab_id = ?", "tab_surviving").First(&closedTab).Error)
	assert.Equal(t, models.TabStatusCompleted, closedTab.Status)

	var cleaned models.Order
	require.NoError(t, db.First(&cleaned, order.ID).Error)
	assert.True(t, cleaned.Cleaned)

	var reconciled models.Table
	require.NoError(t, db.First(&reconciled, table.ID).Error)
	assert.Equal(t, 0, reconciled.CurrentPax)
	assert.Equal(t, models.TableStatusAvailable, reconciled.Status)
}

func TestRecoverAndCloseCompositeID(t *testing.T) {
	db := setupTestDB(t)
	closer := NewTabCloser(db)

	seedBusiness(t, db, "biz1", models.BusinessTypeRestaurant)
	seedTable(t, db, "biz1", "T1", 4)

	// Legacy orders sometimes carry the composite "<id>::<token>" form.
	seedOrder(t, db, models.Order{
		TabID:         "tab_ghost::tok123",
		BusinessID:    "biz1",
		TableID:       "T1",
		CustomerName:  "Ravi",
		PaxCount:      2,
		Status:        "served",
		PaymentStatus: models.OrderPaymentStatusPaid,
		TotalAmount:   40,
	})

	result, err := closer.CloseTab("biz1", "", "tab_ghost::tok123", "")
	require.NoError(t, err)
	assert.True(t, result.Recovered)
	assert.Equal(t, "tab_ghost", result.TabID)

	var orders []models.Order
	require.NoError(t, db.Where("cleaned = ?", true).Find(&orders).Error)
	assert.Len(t, orders, 1)
}

func TestRecoverAndCloseNothingToRecover(t *testing.T) {
	db := setupTestDB(t)
	closer := NewTabCloser(db)

	_, err := closer.CloseTab("biz1", "", "tab_never_existed", "")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestRecoverAndCloseUsesTableHint(t *testing.T) {
	db := setupTestDB(t)
	closer := NewTabCloser(db)

	seedBusiness(t, db, "biz1", models.BusinessTypeRestaurant)
	table := seedTable(t, db, "biz1", "T1", 6)
	require.NoError(t, db.Model(table).Updates(map[string]interface{}{
		"current_pax": 2, "status": models.TableStatusOccupied,
	}).Error)

	require.NoError(t, db.Table(TabShapePrimary).Create(&models.Tab{
		TabID:        "tab_surviving",
		BusinessID:   "biz1",
		TableID:      "T1",
		Status:       models.TabStatusActive,
		CustomerName: "Meera",
		PaxCount:     2,
	}).Error)

	// The orphaned order never recorded its table; the caller names it.
	seedOrder(t, db, models.Order{
		DineInTabID:   "tab_ghost",
		BusinessID:    "biz1",
		CustomerName:  "Meera",
		PaxCount:      2,
		Status:        "served",
		PaymentStatus: models.OrderPaymentStatusPaid,
		TotalAmount:   40,
	})

	result, err := closer.CloseTab("biz1", "T1", "tab_ghost", "")
	require.NoError(t, err)
	assert.True(t, result.Recovered)
	assert.Equal(t, "T1", result.TableID)
	assert.Equal(t, 2, result.PaxReleased)

	var closedTab models.Tab
	require.NoError(t, db.Table(TabShapePrimary).Where("tab_id = ?", "tab_surviving").First(&closedTab).Error)
	assert.Equal(t, models.TabStatusCompleted, closedTab.Status)

	var reconciled models.Table
	require.NoError(t, db.First(&reconciled, table.ID).Error)
	assert.Equal(t, 0, reconciled.CurrentPax)
}
