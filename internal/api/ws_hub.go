package api

import (
	"sync"

	"github.com/gorilla/websocket"
)

// SessionTopic - канал изменений сессии терминала
const SessionTopic = "session"

// OrderTopic - канал статуса одного заказа
func OrderTopic(orderID string) string {
	return "order:" + orderID
}

type hubMessage struct {
	topic   string
	payload []byte
}

// Hub управляет WebSocket соединениями, сгруппированными по темам
// Писать в соединения после AddClient может только Run
type Hub struct {
	topics    map[string]map[*websocket.Conn]bool
	broadcast chan hubMessage
	done      chan struct{}
	stopOnce  sync.Once
	mutex     sync.RWMutex
}

// NewHub создает хаб; Run нужно запустить в отдельной горутине
func NewHub() *Hub {
	return &Hub{
		topics:    make(map[string]map[*websocket.Conn]bool),
		broadcast: make(chan hubMessage, 256), // Буферизованный канал, Publish не блокирует
		done:      make(chan struct{}),
	}
}

// Run рассылает сообщения подписчикам темы до вызова Stop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.broadcast:
			h.mutex.RLock()
			clients := make([]*websocket.Conn, 0, len(h.topics[msg.topic]))
			for conn := range h.topics[msg.topic] {
				clients = append(clients, conn)
			}
			h.mutex.RUnlock()

			for _, conn := range clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					// Удаляем клиента при ошибке записи
					h.RemoveClient(msg.topic, conn)
				}
			}
		}
	}
}

// Stop останавливает Run и закрывает все соединения
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mutex.Lock()
		for _, clients := range h.topics {
			for conn := range clients {
				conn.Close()
			}
		}
		h.topics = make(map[string]map[*websocket.Conn]bool)
		h.mutex.Unlock()
	})
}

// AddClient подписывает соединение на тему
func (h *Hub) AddClient(topic string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*websocket.Conn]bool)
	}
	h.topics[topic][conn] = true
}

// RemoveClient отписывает и закрывает соединение
func (h *Hub) RemoveClient(topic string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	clients, ok := h.topics[topic]
	if !ok {
		return
	}
	if _, ok := clients[conn]; ok {
		delete(clients, conn)
		conn.Close()
	}
	if len(clients) == 0 {
		delete(h.topics, topic)
	}
}

// Publish отправляет сообщение всем подписчикам темы
func (h *Hub) Publish(topic string, payload []byte) {
	select {
	case h.broadcast <- hubMessage{topic: topic, payload: payload}:
	default:
		// Если канал переполнен, пропускаем сообщение (не блокируем)
	}
}

// ClientsCount возвращает количество подписчиков темы
func (h *Hub) ClientsCount(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[topic])
}
