package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/router"
	"github.com/dinetap/dinein-app/services"
	"github.com/dinetap/dinein-app/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupServer(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "api_test.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=2000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Table{},
		&models.Tab{},
		&models.TabCustomer{},
		&models.Order{},
	))
	require.NoError(t, db.Table(services.TabShapeLegacy).AutoMigrate(&models.Tab{}))

	require.NoError(t, db.Create(&models.Business{
		BusinessID: "biz1", Name: "Spice Route", Type: models.BusinessTypeRestaurant,
	}).Error)
	require.NoError(t, db.Create(&models.Table{
		BusinessID: "biz1", TableID: "T1", MaxCapacity: 4, Status: models.TableStatusAvailable,
	}).Error)

	return db, router.SetupRouter(db)
}

func doJSON(t *testing.T, r *gin.Engine, method, url string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return doJSONWithHeader(t, r, method, url, "", body)
}

func doJSONWithHeader(t *testing.T, r *gin.Engine, method, url, auth string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

// Full dine-in walk-through: seat four, reject the fifth, settle, reseat.
func TestDineInEndToEnd(t *testing.T) {
	db, r := setupServer(t)

	// Table starts with no active tab.
	w, resp := doJSON(t, r, "GET", "/dinein/businesses/biz1/tables/T1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["has_active_tab"])

	// A party of four takes the whole table.
	w, resp = doJSON(t, r, "POST", "/dinein/businesses/biz1/tables/T1/tabs", gin.H{
		"capacity": 4, "group_size": 4, "customer_name": "Asha",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data = resp["data"].(map[string]interface{})
	tabID := data["tab_id"].(string)
	token := data["token"].(string)
	assert.Equal(t, float64(4), data["occupied_seats"])
	assert.Equal(t, float64(0), data["available_seats"])
	assert.Equal(t, false, data["joined"])

	// A fifth diner does not fit.
	w, _ = doJSON(t, r, "POST", "/dinein/businesses/biz1/tables/T1/tabs", gin.H{
		"capacity": 4, "group_size": 1, "customer_name": "Ravi",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// An order lands on the tab and is paid at the counter.
	require.NoError(t, db.Create(&models.Order{
		DineInTabID: tabID, BusinessID: "biz1", TableID: "T1",
		Status: "served", PaymentStatus: models.OrderPaymentStatusPaid, TotalAmount: 180,
	}).Error)

	w, resp = doJSON(t, r, "GET", "/dinein/tabs/"+tabID+"/status?business_id=biz1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	tab := data["tab"].(map[string]interface{})
	assert.Equal(t, float64(180), tab["total_amount"])
	assert.Equal(t, float64(0), tab["pending_amount"])

	// Nothing owed, closure goes through.
	w, resp = doJSON(t, r, "POST", "/dinein/tabs/"+tabID+"/close", gin.H{
		"business_id": "biz1", "table_id": "T1", "token": token,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, float64(180), data["total_collected"])
	assert.Equal(t, float64(4), data["pax_released"])

	// The table is free again; a new party fits.
	w, resp = doJSON(t, r, "POST", "/dinein/businesses/biz1/tables/T1/tabs", gin.H{
		"capacity": 4, "group_size": 2, "customer_name": "Meera",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.NotEqual(t, tabID, data["tab_id"])
	assert.Equal(t, float64(2), data["occupied_seats"])
}

func TestPaymentLockOverHTTP(t *testing.T) {
	db, r := setupServer(t)

	w, resp := doJSON(t, r, "POST", "/dinein/businesses/biz1/tables/T1/tabs", gin.H{
		"capacity": 4, "group_size": 2, "customer_name": "Asha",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := resp["data"].(map[string]interface{})
	tabID := data["tab_id"].(string)
	token := data["token"].(string)

	require.NoError(t, db.Create(&models.Order{
		DineInTabID: tabID, BusinessID: "biz1", TableID: "T1",
		Status: "placed", PaymentStatus: models.OrderPaymentStatusPending, TotalAmount: 90,
	}).Error)

	// Lock for payment.
	w, resp = doJSON(t, r, "POST", "/dinein/tabs/"+tabID+"/payment", gin.H{
		"business_id": "biz1", "token": token, "payment_method": "upi",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, float64(90), data["pending_amount"])

	// A second lock attempt conflicts.
	w, _ = doJSON(t, r, "POST", "/dinein/tabs/"+tabID+"/payment", gin.H{
		"business_id": "biz1", "token": token, "payment_method": "upi",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Closing while money is owed conflicts too.
	w, _ = doJSON(t, r, "POST", "/dinein/tabs/"+tabID+"/close", gin.H{
		"business_id": "biz1", "table_id": "T1", "token": token,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Abandon the attempt; twice, to prove idempotence.
	for i := 0; i < 2; i++ {
		w, _ = doJSON(t, r, "POST", "/dinein/tabs/"+tabID+"/payment/unlock", gin.H{
			"business_id": "biz1", "token": token, "reason": "cancelled",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestTabEndpointsErrorMapping(t *testing.T) {
	_, r := setupServer(t)

	// Unknown business -> 404
	w, _ := doJSON(t, r, "POST", "/dinein/businesses/ghost/tables/T1/tabs", gin.H{
		"capacity": 4, "group_size": 2,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Unknown table -> 404
	w, _ = doJSON(t, r, "GET", "/dinein/businesses/biz1/tables/T9/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Missing body fields -> 400
	w, _ = doJSON(t, r, "POST", "/dinein/businesses/biz1/tables/T1/tabs", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bad token -> 401
	w, resp := doJSON(t, r, "POST", "/dinein/businesses/biz1/tables/T1/tabs", gin.H{
		"capacity": 4, "group_size": 2, "customer_name": "Asha",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	tabID := resp["data"].(map[string]interface{})["tab_id"].(string)

	w, _ = doJSON(t, r, "POST", "/dinein/tabs/"+tabID+"/join", gin.H{
		"business_id": "biz1", "token": "wrong", "customer_name": "Mallory",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
