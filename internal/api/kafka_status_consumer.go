package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"deliciouskitchen/frontend/internal/models"
)

// messageReader - часть kafka.Reader, которую использует консьюмер
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// OrderStatusConsumer читает смены статусов заказов из Kafka и рассылает их в WebSocket
type OrderStatusConsumer struct {
	topic     string
	groupID   string
	reader    messageReader
	hub       *Hub
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	processed int64 // Счетчик обработанных событий
	started   atomic.Bool
}

// NewOrderStatusConsumer создает консьюмер. Без groupID каждый терминал
// читает топик сам с последнего смещения
func NewOrderStatusConsumer(brokers []string, topic, groupID string, auth KafkaAuth, hub *Hub) *OrderStatusConsumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  1 * time.Second,
		Dialer:   CreateKafkaDialer(auth),
	}
	if groupID != "" {
		cfg.GroupID = groupID
	} else {
		cfg.StartOffset = kafka.LastOffset
	}
	return newOrderStatusConsumer(kafka.NewReader(cfg), topic, groupID, hub)
}

func newOrderStatusConsumer(reader messageReader, topic, groupID string, hub *Hub) *OrderStatusConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &OrderStatusConsumer{
		topic:   topic,
		groupID: groupID,
		reader:  reader,
		hub:     hub,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start запускает чтение в отдельной горутине
func (kc *OrderStatusConsumer) Start() {
	if !kc.started.CompareAndSwap(false, true) {
		return
	}
	log.Printf("📡 Kafka Order Status Consumer запущен: topic=%s, groupID=%q", kc.topic, kc.groupID)

	go func() {
		defer close(kc.done)
		for {
			msg, err := kc.reader.ReadMessage(kc.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || kc.ctx.Err() != nil {
					return
				}
				log.Printf("⚠️ Kafka Order Status Consumer ошибка чтения: %v", err)
				select {
				case <-kc.ctx.Done():
					return
				case <-time.After(1 * time.Second):
				}
				continue
			}

			if err := kc.handleMessage(msg.Value); err != nil {
				// Не логируем каждую ошибку парсинга, чтобы не спамить
				continue
			}
			atomic.AddInt64(&kc.processed, 1)
		}
	}()
}

// handleMessage нормализует статус и рассылает его подписчикам заказа
func (kc *OrderStatusConsumer) handleMessage(value []byte) error {
	var event models.OrderStatusEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("invalid order status event: %w", err)
	}
	if event.OrderID == "" {
		return errors.New("order status event without orderId")
	}

	payload, err := json.Marshal(OrderStatusUpdate{
		OrderID:    event.OrderID,
		StatusView: models.StatusViewFor(event.Status),
	})
	if err != nil {
		return err
	}
	kc.hub.Publish(OrderTopic(event.OrderID), payload)
	return nil
}

// Processed возвращает количество обработанных событий
func (kc *OrderStatusConsumer) Processed() int64 {
	return atomic.LoadInt64(&kc.processed)
}

// Stop останавливает консьюмер
func (kc *OrderStatusConsumer) Stop() {
	kc.cancel()
	if kc.reader != nil {
		kc.reader.Close()
	}
	if kc.started.Load() {
		<-kc.done
	}
	log.Printf("🛑 Kafka Order Status Consumer остановлен (обработано %d событий)", kc.Processed())
}
