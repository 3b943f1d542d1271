package models

import (
	"time"
)

// OrderItem представляет позицию заказа
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"` // В минимальных единицах валюты
}

// Order представляет заказ, полученный от бэкенда
// Этот слой заказ не изменяет, только классифицирует его статус
type Order struct {
	OrderID       string      `json:"orderId"`
	LegacyID      string      `json:"_id,omitempty"` // Старые ответы API отдают только _id
	OrderNumber   string      `json:"orderNumber"`
	CustomerName  string      `json:"customerName,omitempty"`
	Customer      string      `json:"customer,omitempty"` // Старое имя поля
	CustomerEmail string      `json:"customerEmail,omitempty"`
	Status        string      `json:"status"` // Сырой статус бэкенда (может быть "PENDING", "DELIVERED", "cooking")
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// ID возвращает идентификатор заказа с учетом старого поля _id
func (o *Order) ID() string {
	if o.OrderID != "" {
		return o.OrderID
	}
	return o.LegacyID
}

// DisplayCustomerName возвращает имя клиента с учетом старого поля customer
func (o *Order) DisplayCustomerName() string {
	if o.CustomerName != "" {
		return o.CustomerName
	}
	return o.Customer
}

// CanonicalStatus возвращает нормализованный статус заказа
func (o *Order) CanonicalStatus() OrderStatus {
	return NormalizeStatus(o.Status)
}

// DefaultCancelReason - причина отмены, если клиент ее не указал
const DefaultCancelReason = "Cancelado por el cliente"

// CancelOrderInput - запрос на отмену заказа клиентом
type CancelOrderInput struct {
	Reason string `json:"reason" validate:"max=200"`
}

// OrderStatusEvent - событие смены статуса заказа из Kafka
type OrderStatusEvent struct {
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
