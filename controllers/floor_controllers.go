package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dinetap/dinein-app/floorhub"
	"github.com/dinetap/dinein-app/models"
	"github.com/dinetap/dinein-app/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FloorHandler -> websocket endpoint for waiter terminals / floor displays
func FloorHandler(c *gin.Context) {
	roleInterface, exists := c.Get("role")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	role := roleInterface.(string)

	if role != "staff" && role != "admin" && role != "cleaner" {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	floorhub.RegisterClient(ws, role)
	sendFloorSnapshot(ws, c.Query("business_id"))

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	floorhub.UnregisterClient(ws)
}

// sendFloorSnapshot pushes the current table list so a display does not
// start blank while waiting for the next broadcast.
func sendFloorSnapshot(ws *websocket.Conn, businessID string) {
	db := utils.GetDB()
	if db == nil {
		return
	}

	var tables []models.Table
	q := db.Order("table_id")
	if businessID != "" {
		q = q.Where("business_id = ?", businessID)
	}
	if err := q.Find(&tables).Error; err != nil {
		utils.ErrorLogger.Printf("Failed to load floor snapshot: %v", err)
		return
	}

	if err := floorhub.SendTableSnapshot(ws, tables); err != nil {
		utils.ErrorLogger.Printf("Failed to send floor snapshot: %v", err)
	}
}
