package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dinetap/dinein-app/floorhub"
	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/services"
	"github.com/dinetap/dinein-app/utils"
)

type TableController struct {
	DB         *gorm.DB
	Registry   *services.TableRegistry
	Reconciler *services.Reconciler
}

func NewTableController(db *gorm.DB) *TableController {
	registry := services.NewTableRegistry(db)
	return &TableController{
		DB:         db,
		Registry:   registry,
		Reconciler: services.NewReconciler(db, registry, services.NewTabStore()),
	}
}

// CreateTable -> register a physical table for a business
func (tc *TableController) CreateTable(c *gin.Context) {
	businessID := c.Param("business_id")

	var req struct {
		TableID     string `json:"table_id" binding:"required"`
		MaxCapacity int    `json:"max_capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	// Table identifiers are case-insensitive within a business.
	if existing, err := tc.Registry.ResolveTable(nil, businessID, req.TableID); err == nil {
		utils.RespondError(c, http.StatusConflict,
			&CustomError{"Table " + existing.TableID + " already exists"})
		return
	}

	table := models.Table{
		BusinessID:  businessID,
		TableID:     req.TableID,
		MaxCapacity: req.MaxCapacity,
		Status:      models.TableStatusAvailable,
	}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	floorhub.BroadcastTableUpdate(table)
	utils.InfoLogger.Printf("New table created: %s/%s (capacity=%d)", businessID, table.TableID, table.MaxCapacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> all tables of a business
func (tc *TableController) GetAllTables(c *gin.Context) {
	businessID := c.Param("business_id")

	var tables []models.Table
	if err := tc.DB.Where("business_id = ?", businessID).Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// MarkTableDirty -> staff flags a table as needing cleaning
func (tc *TableController) MarkTableDirty(c *gin.Context) {
	businessID := c.Param("business_id")
	tableID := c.Param("table_id")

	table, err := tc.Registry.ResolveTable(nil, businessID, tableID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if err := tc.Registry.MarkNeedsCleaning(nil, table); err != nil {
		respondEngineError(c, err)
		return
	}

	floorhub.BroadcastMessage(floorhub.Message{
		Event: floorhub.EventTableNeedClean,
		Data:  table,
	})
	utils.RespondJSON(c, http.StatusOK, "Table flagged for cleaning", table)
}

// MarkTableClean -> cleaner releases the needs_cleaning latch
func (tc *TableController) MarkTableClean(c *gin.Context) {
	roleInterface, _ := c.Get("role")
	if roleInterface != "cleaner" && roleInterface != "staff" && roleInterface != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	businessID := c.Param("business_id")
	tableID := c.Param("table_id")

	table, err := tc.Registry.ResolveTable(nil, businessID, tableID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if err := tc.Registry.FinishCleaning(nil, table); err != nil {
		respondEngineError(c, err)
		return
	}

	floorhub.BroadcastTableUpdate(*table)
	utils.RespondJSON(c, http.StatusOK, "Table marked as clean", table)
}

// ReconcileTable -> force a recompute of cached occupancy from open tabs
func (tc *TableController) ReconcileTable(c *gin.Context) {
	businessID := c.Param("business_id")
	tableID := c.Param("table_id")

	table, err := tc.Reconciler.RecalculateAndUpdateTable(businessID, tableID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	floorhub.BroadcastTableUpdate(*table)
	utils.RespondJSON(c, http.StatusOK, "Table reconciled", table)
}
