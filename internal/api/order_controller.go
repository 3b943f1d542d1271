package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

// OrderController управляет просмотром и отменой заказов
type OrderController struct {
	backend *services.BackendClient
	clock   clockwork.Clock
}

// NewOrderController создает контроллер заказов
func NewOrderController(backend *services.BackendClient, clock clockwork.Clock) *OrderController {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &OrderController{backend: backend, clock: clock}
}

// OrderDetails - заказ вместе со всем, что нужно экрану статуса
type OrderDetails struct {
	Order           *models.Order       `json:"order"`
	StatusView      models.StatusView   `json:"statusView"`
	EstimatedWait   models.WaitEstimate `json:"estimatedWait"`
	CanSubmitSurvey bool                `json:"canSubmitSurvey"`
}

// GetOrder возвращает заказ со статусом, временем ожидания и доступностью опроса
// GET /api/v1/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := oc.backend.GetOrder(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "Не удалось получить заказ", err)
		return
	}

	hasSurvey := false
	if order.OrderNumber != "" {
		hasSurvey, err = oc.backend.CheckSurvey(ctx, order.OrderNumber)
		if err != nil {
			// Не блокируем опрос из-за ошибки проверки
			log.Printf("⚠️ Проверка опроса по заказу %s не удалась: %v", order.OrderNumber, err)
			hasSurvey = false
		}
	}

	c.JSON(http.StatusOK, OrderDetails{
		Order:           order,
		StatusView:      models.StatusViewFor(order.Status),
		EstimatedWait:   models.EstimatedWait(order.Status, order.CreatedAt, oc.clock.Now()),
		CanSubmitSurvey: models.CanSubmitSurvey(order.Status, hasSurvey),
	})
}

// CancelOrder отменяет заказ, если статус это позволяет
// Если нельзя, бэкенд не вызывается, а клиент получает тип ограничения
// POST /api/v1/orders/:id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	var input models.CancelOrderInput
	// Тело не обязательно: без причины подставляется стандартная
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	orderID := c.Param("id")
	order, err := oc.backend.GetOrder(ctx, orderID)
	if err != nil {
		respondError(c, "Не удалось получить заказ", err)
		return
	}

	if !models.IsCustomerCancellable(order.Status) {
		view := models.StatusViewFor(order.Status)
		c.JSON(http.StatusConflict, gin.H{
			"error":      "Заказ нельзя отменить",
			"statusView": view,
		})
		return
	}

	cancelled, err := oc.backend.CancelOrder(ctx, orderID, input.Reason)
	if err != nil {
		respondError(c, "Не удалось отменить заказ", err)
		return
	}

	log.Printf("✅ Заказ %s отменен клиентом", orderID)
	c.JSON(http.StatusOK, gin.H{
		"order":      cancelled,
		"statusView": models.StatusViewFor(cancelled.Status),
	})
}

// KitchenOrder - заказ на экране кухни
type KitchenOrder struct {
	Order      models.Order      `json:"order"`
	StatusView models.StatusView `json:"statusView"`
}

// ListKitchenOrders возвращает заказы для кухни
// GET /api/v1/kitchen/orders
func (oc *OrderController) ListKitchenOrders(c *gin.Context) {
	orders, err := oc.backend.ListKitchenOrders(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, "Не удалось получить заказы кухни", err)
		return
	}

	out := make([]KitchenOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, KitchenOrder{Order: o, StatusView: models.StatusViewFor(o.Status)})
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}
