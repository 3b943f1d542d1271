package models

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// OrderStatus представляет каноничный статус заказа на стороне клиента
// У заказа в любой момент ровно один каноничный статус
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // Заказ создан, ждет отправки на кухню
	OrderStatusReceived  OrderStatus = "received"  // Кухня приняла заказ
	OrderStatusPreparing OrderStatus = "preparing" // Заказ готовится
	OrderStatusReady     OrderStatus = "ready"     // Готов, ждет выдачи
	OrderStatusCompleted OrderStatus = "completed" // Выдан клиенту (финальный)
	OrderStatusCancelled OrderStatus = "cancelled" // Отменен (финальный)
)

// AllOrderStatuses - все каноничные статусы в порядке жизненного цикла
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusReceived,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// statusAliases сопоставляет сырые статусы бэкенда (верхний регистр, legacy) с каноничными
var statusAliases = map[string]OrderStatus{
	"PENDING":   OrderStatusPending,
	"RECEIVED":  OrderStatusReceived,
	"PREPARING": OrderStatusPreparing,
	"READY":     OrderStatusReady,
	"COMPLETED": OrderStatusCompleted,
	"DELIVERED": OrderStatusCompleted, // legacy
	"CANCELLED": OrderStatusCancelled,

	"pending":   OrderStatusPending,
	"received":  OrderStatusReceived,
	"preparing": OrderStatusPreparing,
	"ready":     OrderStatusReady,
	"completed": OrderStatusCompleted,
	"delivered": OrderStatusCompleted, // legacy
	"cancelled": OrderStatusCancelled,

	// Старые статусы UI
	"cooking": OrderStatusPreparing,
}

// NormalizeStatus приводит сырой статус бэкенда к каноничному
// Пустой статус -> pending (это штатное поведение, не ошибка)
// Неизвестный статус тоже -> pending, но с предупреждением в логе
func NormalizeStatus(raw string) OrderStatus {
	if raw == "" {
		return OrderStatusPending
	}

	for _, candidate := range []string{raw, strings.ToUpper(raw), strings.ToLower(raw)} {
		if status, ok := statusAliases[candidate]; ok {
			return status
		}
	}

	log.Printf("⚠️ NormalizeStatus: неизвестный статус заказа %q, используем %q", raw, OrderStatusPending)
	return OrderStatusPending
}

// IsCustomerCancellable - клиент может отменить заказ только в pending/received
func IsCustomerCancellable(raw string) bool {
	switch NormalizeStatus(raw) {
	case OrderStatusPending, OrderStatusReceived:
		return true
	}
	return false
}

// IsFinalStatus - completed и cancelled финальные, дальше переходов нет
func IsFinalStatus(raw string) bool {
	switch NormalizeStatus(raw) {
	case OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// MessageKind - тип сообщения, объясняющего почему отмена недоступна
// Текст подбирает слой представления
type MessageKind string

const (
	MessageNone                MessageKind = ""
	MessageCannotCancelKitchen MessageKind = "cannotCancelInKitchen"
	MessageCannotCancelReady   MessageKind = "cannotCancelReadyForPickup"
	MessageCannotCancelDone    MessageKind = "cannotCancelAlreadyCompleted"
)

// CancelRestrictionFor возвращает тип сообщения-ограничения для статуса
// cancelled: сообщения нет (заказ уже финальный, UI не показывает ни кнопку, ни ограничение)
// pending/received: сообщения нет (вместо него показывается кнопка отмены)
func CancelRestrictionFor(raw string) MessageKind {
	switch NormalizeStatus(raw) {
	case OrderStatusPreparing:
		return MessageCannotCancelKitchen
	case OrderStatusReady:
		return MessageCannotCancelReady
	case OrderStatusCompleted:
		return MessageCannotCancelDone
	}
	return MessageNone
}

// StatusView - то, что UI получает для отрисовки статуса заказа
type StatusView struct {
	Status             OrderStatus  `json:"status"`
	CanCancel          bool         `json:"canCancel"`
	RestrictionMessage *MessageKind `json:"restrictionMessageKind"`
	IsTerminal         bool         `json:"isTerminal"`
	TranslationKey     string       `json:"translationKey"`
}

// StatusViewFor собирает StatusView по сырому статусу
func StatusViewFor(raw string) StatusView {
	status := NormalizeStatus(raw)
	view := StatusView{
		Status:         status,
		CanCancel:      IsCustomerCancellable(string(status)),
		IsTerminal:     IsFinalStatus(string(status)),
		TranslationKey: TranslationKey(string(status)),
	}
	if kind := CancelRestrictionFor(string(status)); kind != MessageNone {
		view.RestrictionMessage = &kind
	}
	return view
}

// TranslationKey возвращает i18n ключ для статуса (например "orderStatus.pending")
func TranslationKey(raw string) string {
	return fmt.Sprintf("orderStatus.%s", NormalizeStatus(raw))
}

// WaitKind описывает, что показывать вместо оставшихся минут
type WaitKind string

const (
	WaitMinutes   WaitKind = "minutes"
	WaitSoon      WaitKind = "soon"
	WaitReady     WaitKind = "ready"
	WaitDelivered WaitKind = "delivered"
	WaitCancelled WaitKind = "cancelled"
)

// WaitEstimate - ориентировочное время ожидания заказа
type WaitEstimate struct {
	Kind    WaitKind `json:"kind"`
	Minutes int      `json:"minutes,omitempty"`
}

// Бюджеты времени приготовления по статусам (в минутах)
const (
	pendingWaitBudget   = 15
	preparingWaitBudget = 10
	defaultWaitMinutes  = 12
)

// EstimatedWait считает оставшееся время по статусу и времени создания заказа
// Для received и неизвестных сырых статусов используется фиксированное значение
func EstimatedWait(raw string, createdAt, now time.Time) WaitEstimate {
	elapsed := int(now.Sub(createdAt) / time.Minute)

	var minutes int
	switch {
	case raw == "":
		minutes = pendingWaitBudget - elapsed
	case !isKnownStatus(raw):
		return WaitEstimate{Kind: WaitMinutes, Minutes: defaultWaitMinutes}
	default:
		switch NormalizeStatus(raw) {
		case OrderStatusPending:
			minutes = pendingWaitBudget - elapsed
		case OrderStatusReceived:
			return WaitEstimate{Kind: WaitMinutes, Minutes: defaultWaitMinutes}
		case OrderStatusPreparing:
			minutes = preparingWaitBudget - elapsed
		case OrderStatusReady:
			return WaitEstimate{Kind: WaitReady}
		case OrderStatusCompleted:
			return WaitEstimate{Kind: WaitDelivered}
		case OrderStatusCancelled:
			return WaitEstimate{Kind: WaitCancelled}
		}
	}

	if minutes <= 0 {
		return WaitEstimate{Kind: WaitSoon}
	}
	return WaitEstimate{Kind: WaitMinutes, Minutes: minutes}
}

// CanSubmitSurvey - опрос о процессе доступен только пока заказ готовится
// или ждет выдачи, и только если опрос по заказу еще не отправлен
func CanSubmitSurvey(raw string, alreadySubmitted bool) bool {
	if alreadySubmitted {
		return false
	}
	switch NormalizeStatus(raw) {
	case OrderStatusPreparing, OrderStatusReady:
		return true
	}
	return false
}

func isKnownStatus(raw string) bool {
	for _, candidate := range []string{raw, strings.ToUpper(raw), strings.ToLower(raw)} {
		if _, ok := statusAliases[candidate]; ok {
			return true
		}
	}
	return false
}
