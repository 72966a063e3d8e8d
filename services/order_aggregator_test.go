package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinetap/dinein-app/models"
)

func setupTabWithOrders(t *testing.T, svc *TabService) string {
	t.Helper()
	db := svc.DB
	seedBusiness(t, db, "biz1", models.BusinessTypeRestaurant)
	seedTable(t, db, "biz1", "T1", 4)

	created, err := svc.CreateOrJoinTab("biz1", "T1", 4, 2, "Asha")
	require.NoError(t, err)

	// 100 unpaid, 50 paid, 30 unpaid, plus one cancelled that must not count.
	seedOrder(t, db, models.Order{DineInTabID: created.TabID, Status: "placed",
		PaymentStatus: models.OrderPaymentStatusPending, TotalAmount: 100})
	seedOrder(t, db, models.Order{DineInTabID: created.TabID, Status: "served",
		PaymentStatus: models.OrderPaymentStatusPaid, TotalAmount: 50})
	// Legacy reference column still counts.
	seedOrder(t, db, models.Order{TabID: created.TabID, Status: "placed",
		PaymentStatus: models.OrderPaymentStatusPending, TotalAmount: 30})
	seedOrder(t, db, models.Order{DineInTabID: created.TabID, Status: models.OrderStatusCancelled,
		PaymentStatus: models.OrderPaymentStatusPending, TotalAmount: 999})

	return created.TabID
}

func TestRecalculateTabTotals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTabService(db)
	tabID := setupTabWithOrders(t, svc)

	aggregator := svc.Aggregator

	// Deterministic and idempotent: repeated runs yield identical totals.
	for i := 0; i < 3; i++ {
		tab, err := aggregator.RecalculateTabTotals("biz1", tabID)
		require.NoError(t, err)
		assert.InDelta(t, 180, tab.TotalAmount, 0.001)
		assert.InDelta(t, 50, tab.PaidAmount, 0.001)
		assert.InDelta(t, 130, tab.PendingAmount, 0.001)
		assert.NotNil(t, tab.LastRecalculatedAt)
	}
}

func TestRecalculateTabTotalsUnknownTab(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTabService(db)

	_, err := svc.Aggregator.RecalculateTabTotals("biz1", "ghost")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestVerifyTabIntegrityDetectsDrift(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTabService(db)
	tabID := setupTabWithOrders(t, svc)

	aggregator := svc.Aggregator

	// Prime the cache, then corrupt it behind the aggregator's back.
	_, err := aggregator.RecalculateTabTotals("biz1", tabID)
	require.NoError(t, err)

	report, err := aggregator.VerifyTabIntegrity("biz1", tabID)
	require.NoError(t, err)
	assert.True(t, report.IsValid)

	require.NoError(t, db.Table(TabShapePrimary).
		Where("tab_id = ?", tabID).
		Update("total_amount", 500).Error)

	report, err = aggregator.VerifyTabIntegrity("biz1", tabID)
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	assert.InDelta(t, 500, report.CachedTotal, 0.001)
	assert.InDelta(t, 180, report.TotalAmount, 0.001)
}

func TestVerifyTabIntegrityToleratesRounding(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTabService(db)
	tabID := setupTabWithOrders(t, svc)

	_, err := svc.Aggregator.RecalculateTabTotals("biz1", tabID)
	require.NoError(t, err)

	// Sub-cent drift stays within tolerance.
	require.NoError(t, db.Table(TabShapePrimary).
		Where("tab_id = ?", tabID).
		Update("total_amount", 180.009).Error)

	report, err := svc.Aggregator.VerifyTabIntegrity("biz1", tabID)
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}
