package floorhub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dinetap/dinein-app/models"
)

// Event types pushed to waiter terminals and floor displays.
const (
	EventTableUpdate    = "table_update"
	EventTabUpdate      = "tab_update"
	EventTabClosed      = "tab_closed"
	EventPaymentLocked  = "payment_locked"
	EventPaymentUnlock  = "payment_unlocked"
	EventStaffNotif     = "staff_notification"
	EventTableNeedClean = "table_needs_cleaning"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// FloorHub menampung semua device client (waiter, floor display, admin)
type FloorHub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var floorHub = FloorHub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient -> menambahkan connection ke set dengan role
func RegisterClient(conn *websocket.Conn, role string) {
	floorHub.mutex.Lock()
	defer floorHub.mutex.Unlock()
	floorHub.clients[conn] = role
}

// UnregisterClient -> melepaskan connection
func UnregisterClient(conn *websocket.Conn) {
	floorHub.mutex.Lock()
	defer floorHub.mutex.Unlock()
	delete(floorHub.clients, conn)
	conn.Close()
}

// BroadcastTableUpdate -> occupancy/state change on a table
func BroadcastTableUpdate(table models.Table) {
	broadcast(Message{
		Event: EventTableUpdate,
		Data:  table,
	})
}

// BroadcastTabUpdate -> seats or bill changed on a tab
func BroadcastTabUpdate(tab models.Tab) {
	tab.Token = ""
	broadcast(Message{
		Event: EventTabUpdate,
		Data:  tab,
	})
}

// BroadcastTabClosed -> a party settled and left
func BroadcastTabClosed(data interface{}) {
	broadcast(Message{
		Event: EventTabClosed,
		Data:  data,
	})
}

// BroadcastPaymentLocked -> payment started on a tab
func BroadcastPaymentLocked(tabID string) {
	broadcast(Message{
		Event: EventPaymentLocked,
		Data:  map[string]string{"tab_id": tabID},
	})
}

// BroadcastPaymentUnlocked -> payment attempt abandoned
func BroadcastPaymentUnlocked(tabID, reason string) {
	broadcast(Message{
		Event: EventPaymentUnlock,
		Data:  map[string]string{"tab_id": tabID, "reason": reason},
	})
}

// BroadcastStaffNotification -> free-form staff message
func BroadcastStaffNotification(message string) {
	broadcast(Message{
		Event: EventStaffNotif,
		Data:  message,
	})
}

// BroadcastMessage -> broadcast pesan umum
func BroadcastMessage(msg Message) {
	broadcast(msg)
}

// SendTableSnapshot -> initial floor state for one freshly joined client.
// Shares the hub mutex so the write cannot interleave with a broadcast.
func SendTableSnapshot(conn *websocket.Conn, tables []models.Table) error {
	data, err := json.Marshal(Message{
		Event: EventTableUpdate,
		Data:  tables,
	})
	if err != nil {
		return err
	}

	floorHub.mutex.Lock()
	defer floorHub.mutex.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func broadcast(msg Message) {
	floorHub.mutex.Lock()
	defer floorHub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for conn := range floorHub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending message to client: %v", err)
			continue
		}
	}
}
