package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// UI терминала обслуживается этим же процессом
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// OrderStatusUpdate - сообщение о статусе заказа в WebSocket
type OrderStatusUpdate struct {
	OrderID    string            `json:"orderId"`
	StatusView models.StatusView `json:"statusView"`
}

// WSController - WebSocket каналы статуса заказа и сессии
type WSController struct {
	hub      *Hub
	backend  *services.BackendClient
	sessions SessionReader
}

func NewWSController(hub *Hub, backend *services.BackendClient, sessions SessionReader) *WSController {
	return &WSController{hub: hub, backend: backend, sessions: sessions}
}

// ServeOrderStatus - GET /ws/orders/:id
// Сначала отправляется текущий статус, дальше обновления из Kafka
func (wc *WSController) ServeOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var initial []byte
	if order, err := wc.backend.GetOrder(c.Request.Context(), orderID); err == nil {
		initial, _ = json.Marshal(OrderStatusUpdate{OrderID: orderID, StatusView: models.StatusViewFor(order.Status)})
	} else {
		log.Printf("⚠️ Не удалось получить заказ %s для WebSocket: %v", orderID, err)
	}

	wc.serve(c, OrderTopic(orderID), initial)
}

// ServeSession - GET /ws/session
func (wc *WSController) ServeSession(c *gin.Context) {
	initial, _ := json.Marshal(wc.sessions.Session())
	wc.serve(c, SessionTopic, initial)
}

func (wc *WSController) serve(c *gin.Context, topic string, initial []byte) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ Ошибка обновления WebSocket соединения: %v", err)
		return
	}

	// Первое сообщение пишем до регистрации в хабе: дальше в соединение пишет только хаб
	if initial != nil {
		if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
			conn.Close()
			return
		}
	}

	wc.hub.AddClient(topic, conn)
	log.Printf("📱 WebSocket подключен (%s). Подключений: %d", topic, wc.hub.ClientsCount(topic))

	defer func() {
		wc.hub.RemoveClient(topic, conn)
		log.Printf("📱 WebSocket отключен (%s). Осталось: %d", topic, wc.hub.ClientsCount(topic))
	}()

	// Читаем сообщения от клиента (ping/pong для поддержания соединения)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket ошибка: %v", err)
			}
			break
		}
	}
}

// PublishSession рассылает изменение сессии подписчикам /ws/session
func PublishSession(hub *Hub, session services.Session) {
	payload, err := json.Marshal(session)
	if err != nil {
		return
	}
	hub.Publish(SessionTopic, payload)
}
