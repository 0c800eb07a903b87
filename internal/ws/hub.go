package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/goroutine"
	"github.com/ignatzorin/market-backoffice/internal/logger"
)

// Hub раздаёт события подключённым админ-консолям.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

// message с пустым adminID уходит всем консолям.
type message struct {
	adminID uuid.UUID
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до вызова Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Stop завершает Run.
func (h *Hub) Stop() {
	close(h.done)
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToUser отправляет событие всем вкладкам конкретного администратора.
func (h *Hub) BroadcastToUser(adminID uuid.UUID, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	h.enqueue(message{adminID: adminID, payload: raw}, event)
	return nil
}

// BroadcastAll отправляет событие всем открытым консолям, чтобы они обновили списки.
func (h *Hub) BroadcastAll(event string, data any) {
	raw, err := encode(event, data)
	if err != nil {
		logger.Log.WithError(err).WithField("event", event).Error("ws: broadcast encode failed")
		return
	}
	h.enqueue(message{payload: raw}, event)
}

// ConnectedAdmins возвращает число администраторов с открытым соединением.
func (h *Hub) ConnectedAdmins() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(event string, data any) ([]byte, error) {
	// контракт клиента: "type" — имя события, "data" — полезная нагрузка
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

func (h *Hub) enqueue(msg message, event string) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Log.WithFields(logrus.Fields{"event": event}).Warn("ws: broadcast queue full, event dropped")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.adminID]; !ok {
		h.clients[client.adminID] = make(map[*Client]struct{})
	}
	h.clients[client.adminID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.adminID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.clients, client.adminID)
		}
	}
}

func (h *Hub) send(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(client *Client) {
		select {
		case client.send <- msg.payload:
		default:
			// медленный клиент: отключаем, он переподключится и перечитает данные
			goroutine.SafeGo(client.Close)
		}
	}

	if msg.adminID != uuid.Nil {
		for client := range h.clients[msg.adminID] {
			deliver(client)
		}
		return
	}
	for _, clients := range h.clients {
		for client := range clients {
			deliver(client)
		}
	}
}
