package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dinetap/dinein-app/floorhub"
	"github.com/dinetap/dinein-app/services"
	"github.com/dinetap/dinein-app/utils"
)

type TabController struct {
	DB     *gorm.DB
	Tabs   *services.TabService
	Closer *services.TabCloser
}

func NewTabController(db *gorm.DB) *TabController {
	return &TabController{
		DB:     db,
		Tabs:   services.NewTabService(db),
		Closer: services.NewTabCloser(db),
	}
}

// GetTableStatus -> apakah meja sudah punya tab aktif
func (tc *TabController) GetTableStatus(c *gin.Context) {
	businessID := c.Param("business_id")
	tableID := c.Param("table_id")

	status, err := tc.Tabs.GetTableStatus(businessID, tableID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table status", status)
}

// CreateOrJoinTab -> party claims seats, opening or merging into a tab
func (tc *TabController) CreateOrJoinTab(c *gin.Context) {
	businessID := c.Param("business_id")
	tableID := c.Param("table_id")

	var req struct {
		Capacity     int    `json:"capacity" binding:"required"`
		GroupSize    int    `json:"group_size" binding:"required"`
		CustomerName string `json:"customer_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := tc.Tabs.CreateOrJoinTab(businessID, tableID, req.Capacity, req.GroupSize, req.CustomerName)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	tc.broadcastTableUpdate(businessID, tableID)

	message := "Tab created"
	if result.Joined {
		message = "Joined existing tab"
	}
	utils.RespondJSON(c, http.StatusCreated, message, result)
}

// JoinTable -> one more diner joins an existing tab
func (tc *TabController) JoinTable(c *gin.Context) {
	tabID := c.Param("tab_id")

	var req struct {
		BusinessID   string `json:"business_id"`
		Token        string `json:"token" binding:"required"`
		CustomerName string `json:"customer_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := tc.Tabs.JoinTable(req.BusinessID, tabID, req.Token, req.CustomerName); err != nil {
		respondEngineError(c, err)
		return
	}

	// Seat counts just changed; push the fresh tab to the floor displays.
	if tab, err := tc.Tabs.ValidateTabToken(req.BusinessID, tabID, req.Token); err == nil {
		floorhub.BroadcastTabUpdate(*tab)
	}

	utils.RespondJSON(c, http.StatusOK, "Joined table", nil)
}

// GetTabStatus -> tab summary with aggregated bill and orders
func (tc *TabController) GetTabStatus(c *gin.Context) {
	tabID := c.Param("tab_id")
	businessID := c.Query("business_id")

	status, err := tc.Tabs.GetTabStatus(businessID, tabID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Tab status", status)
}

// InitiatePayment -> lock the tab while a payment attempt is in flight
func (tc *TabController) InitiatePayment(c *gin.Context) {
	tabID := c.Param("tab_id")

	var req struct {
		BusinessID    string `json:"business_id"`
		Token         string `json:"token" binding:"required"`
		PaymentMethod string `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	pending, err := tc.Tabs.InitiatePayment(req.BusinessID, tabID, req.Token, req.PaymentMethod)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	floorhub.BroadcastPaymentLocked(tabID)
	utils.RespondJSON(c, http.StatusOK, "Payment initiated", gin.H{
		"pending_amount": pending,
	})
}

// UnlockPayment -> compensating action for an abandoned payment attempt
func (tc *TabController) UnlockPayment(c *gin.Context) {
	tabID := c.Param("tab_id")

	var req struct {
		BusinessID string `json:"business_id"`
		Token      string `json:"token" binding:"required"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := tc.Tabs.UnlockPayment(req.BusinessID, tabID, req.Token, req.Reason); err != nil {
		respondEngineError(c, err)
		return
	}

	floorhub.BroadcastPaymentUnlocked(tabID, req.Reason)
	utils.RespondJSON(c, http.StatusOK, "Payment unlocked", nil)
}

// CloseTab -> settle and close (the "clean table" action)
func (tc *TabController) CloseTab(c *gin.Context) {
	tabID := c.Param("tab_id")

	var req struct {
		BusinessID string `json:"business_id" binding:"required"`
		TableID    string `json:"table_id"`
		Token      string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := tc.Closer.CloseTab(req.BusinessID, req.TableID, tabID, req.Token)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	floorhub.BroadcastTabClosed(result)
	if result.Recovered {
		floorhub.BroadcastStaffNotification(
			"Tab " + result.TabID + " at table " + result.TableID + " was closed via order recovery, please verify the bill")
	}
	tc.broadcastTableUpdate(req.BusinessID, result.TableID)

	utils.RespondJSON(c, http.StatusOK, "Tab closed", gin.H{
		"total_collected": result.TotalCollected,
		"table_id":        result.TableID,
		"pax_released":    result.PaxReleased,
		"recovered":       result.Recovered,
	})
}

func (tc *TabController) broadcastTableUpdate(businessID, tableID string) {
	table, err := tc.Tabs.Registry.ResolveTable(nil, businessID, tableID)
	if err != nil {
		return
	}
	floorhub.BroadcastTableUpdate(*table)
}
