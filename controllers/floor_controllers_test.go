package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinetap/dinein-app/floorhub"
	"github.com/dinetap/dinein-app/utils"
)

func readEvent(t *testing.T, ws *websocket.Conn) floorhub.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg floorhub.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestFloorSocketSnapshotAndJoinBroadcast(t *testing.T) {
	db, r := setupServer(t)
	utils.InitDB(db)

	// Seat a party before any display connects.
	w, resp := doJSON(t, r, "POST", "/dinein/businesses/biz1/tables/T1/tabs", gin.H{
		"capacity": 4, "group_size": 2, "customer_name": "Asha",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := resp["data"].(map[string]interface{})
	tabID := data["tab_id"].(string)
	token := data["token"].(string)

	srv := httptest.NewServer(r)
	defer srv.Close()

	staffToken, err := utils.GenerateToken(7, "staff")
	require.NoError(t, err)

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) +
		"/ws/floor?token=" + staffToken + "&business_id=biz1"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	// A display joining mid-service gets the current floor, not a blank.
	snapshot := readEvent(t, ws)
	assert.Equal(t, floorhub.EventTableUpdate, snapshot.Event)
	tables := snapshot.Data.([]interface{})
	require.Len(t, tables, 1)
	table := tables[0].(map[string]interface{})
	assert.Equal(t, "T1", table["table_id"])
	assert.Equal(t, float64(2), table["current_pax"])

	// A diner joins; the seat change is pushed to the display.
	w, _ = doJSON(t, r, "POST", "/dinein/tabs/"+tabID+"/join", gin.H{
		"business_id": "biz1", "token": token, "customer_name": "Ravi",
	})
	require.Equal(t, http.StatusOK, w.Code)

	update := readEvent(t, ws)
	assert.Equal(t, floorhub.EventTabUpdate, update.Event)
	tab := update.Data.(map[string]interface{})
	assert.Equal(t, tabID, tab["tab_id"])
	assert.Equal(t, float64(3), tab["occupied_seats"])
	_, leaked := tab["token"]
	assert.False(t, leaked, "tab token must not reach the floor displays")
}

func TestFloorSocketRejectsBadToken(t *testing.T) {
	_, r := setupServer(t)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/ws/floor?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
