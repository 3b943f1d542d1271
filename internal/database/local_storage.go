package database

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/utils"
)

// RedisLocalStorage - постоянное хранилище терминала в Redis
// Все процессы с одинаковым origin видят один хеш, а изменения
// рассылаются через Pub/Sub остальным контекстам (аналог события storage в браузере)
type RedisLocalStorage struct {
	redisUtil *utils.RedisClient
	origin    string
	contextID string // ID текущего контекста, свои события не доставляются

	mu       sync.Mutex
	handlers map[int]func(models.StorageEvent)
	nextID   int

	closeSub  func() error
	closeOnce sync.Once
	done      chan struct{}
}

// storageMessage - сообщение в канале изменений хранилища
type storageMessage struct {
	Source   string `json:"source"`
	Key      string `json:"key"`
	NewValue string `json:"newValue"`
}

// NewRedisLocalStorage создает хранилище для origin и сразу подписывается на изменения
func NewRedisLocalStorage(redisUtil *utils.RedisClient, origin string) *RedisLocalStorage {
	s := &RedisLocalStorage{
		redisUtil: redisUtil,
		origin:    origin,
		contextID: uuid.New().String(),
		handlers:  make(map[int]func(models.StorageEvent)),
		done:      make(chan struct{}),
	}

	messages, closeFn := redisUtil.Subscribe(s.channel())
	s.closeSub = closeFn
	go s.listen(messages)

	log.Printf("✅ LocalStorage: Redis хранилище для origin=%s (context=%s)", origin, s.contextID)
	return s
}

func (s *RedisLocalStorage) itemsKey() string {
	return fmt.Sprintf("localstorage:%s:items", s.origin)
}

func (s *RedisLocalStorage) channel() string {
	return fmt.Sprintf("localstorage:%s:events", s.origin)
}

// ContextID возвращает ID контекста (процесса) в рамках origin
func (s *RedisLocalStorage) ContextID() string {
	return s.contextID
}

// GetItem читает ключ. Ошибки Redis логируются и трактуются как отсутствие ключа
func (s *RedisLocalStorage) GetItem(key string) (string, bool) {
	value, ok, err := s.redisUtil.HGet(s.itemsKey(), key)
	if err != nil {
		log.Printf("⚠️ LocalStorage: ошибка чтения ключа %s: %v", key, err)
		return "", false
	}
	return value, ok
}

// SetItem сохраняет ключ и уведомляет остальные контексты
func (s *RedisLocalStorage) SetItem(key, value string) error {
	if err := s.redisUtil.HSet(s.itemsKey(), key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return s.publish(key, value)
}

// RemoveItem удаляет ключ. Удаление отсутствующего ключа ничего не публикует
func (s *RedisLocalStorage) RemoveItem(key string) error {
	removed, err := s.redisUtil.HDel(s.itemsKey(), key)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	if removed == 0 {
		return nil
	}
	return s.publish(key, "")
}

// Clear удаляет все ключи origin (событие с пустым ключом)
func (s *RedisLocalStorage) Clear() error {
	if err := s.redisUtil.Delete(s.itemsKey()); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	return s.publish("", "")
}

// OnStorage регистрирует обработчик изменений, сделанных другими контекстами
func (s *RedisLocalStorage) OnStorage(handler func(models.StorageEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

// Close закрывает подписку на канал изменений
func (s *RedisLocalStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.closeSub()
	})
	return err
}

func (s *RedisLocalStorage) publish(key, value string) error {
	payload, err := json.Marshal(storageMessage{Source: s.contextID, Key: key, NewValue: value})
	if err != nil {
		return err
	}
	if err := s.redisUtil.Publish(s.channel(), string(payload)); err != nil {
		// Сам ключ уже записан, другие контексты увидят его при следующем чтении
		log.Printf("⚠️ LocalStorage: не удалось разослать изменение ключа %s: %v", key, err)
		return fmt.Errorf("failed to publish storage event: %w", err)
	}
	return nil
}

func (s *RedisLocalStorage) listen(messages <-chan *redis.Message) {
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var m storageMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				log.Printf("⚠️ LocalStorage: некорректное сообщение в канале %s: %v", s.channel(), err)
				continue
			}
			if m.Source == s.contextID {
				continue
			}
			s.dispatch(models.StorageEvent{Key: m.Key, NewValue: m.NewValue})
		}
	}
}

func (s *RedisLocalStorage) dispatch(event models.StorageEvent) {
	s.mu.Lock()
	handlers := make([]func(models.StorageEvent), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}
