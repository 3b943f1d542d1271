package database

import (
	"sync"

	"deliciouskitchen/frontend/internal/models"
)

// MemoryOrigin - хранилище в памяти процесса, общее для нескольких контекстов
// Используется, когда Redis недоступен, и в тестах (несколько "вкладок" в одном процессе)
type MemoryOrigin struct {
	mu       sync.Mutex
	items    map[string]string
	contexts map[*MemoryLocalStorage]struct{}
}

// NewMemoryOrigin создает пустой origin
func NewMemoryOrigin() *MemoryOrigin {
	return &MemoryOrigin{
		items:    make(map[string]string),
		contexts: make(map[*MemoryLocalStorage]struct{}),
	}
}

// NewContext открывает новый контекст (аналог вкладки) в этом origin
func (o *MemoryOrigin) NewContext() *MemoryLocalStorage {
	s := &MemoryLocalStorage{
		origin:   o,
		handlers: make(map[int]func(models.StorageEvent)),
		events:   make(chan models.StorageEvent, 256),
		done:     make(chan struct{}),
	}

	o.mu.Lock()
	o.contexts[s] = struct{}{}
	o.mu.Unlock()

	go s.deliver()
	return s
}

// broadcast рассылает событие всем контекстам, кроме источника
func (o *MemoryOrigin) broadcast(source *MemoryLocalStorage, event models.StorageEvent) {
	o.mu.Lock()
	targets := make([]*MemoryLocalStorage, 0, len(o.contexts))
	for ctx := range o.contexts {
		if ctx != source {
			targets = append(targets, ctx)
		}
	}
	o.mu.Unlock()

	for _, ctx := range targets {
		ctx.enqueue(event)
	}
}

// MemoryLocalStorage - один контекст MemoryOrigin
// События других контекстов доставляются асинхронно и по порядку
type MemoryLocalStorage struct {
	origin *MemoryOrigin

	mu       sync.Mutex
	handlers map[int]func(models.StorageEvent)
	nextID   int

	events    chan models.StorageEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryLocalStorage - отдельный origin с единственным контекстом
func NewMemoryLocalStorage() *MemoryLocalStorage {
	return NewMemoryOrigin().NewContext()
}

// GetItem читает ключ
func (s *MemoryLocalStorage) GetItem(key string) (string, bool) {
	s.origin.mu.Lock()
	defer s.origin.mu.Unlock()
	value, ok := s.origin.items[key]
	return value, ok
}

// SetItem сохраняет ключ и уведомляет остальные контексты
func (s *MemoryLocalStorage) SetItem(key, value string) error {
	s.origin.mu.Lock()
	s.origin.items[key] = value
	s.origin.mu.Unlock()

	s.origin.broadcast(s, models.StorageEvent{Key: key, NewValue: value})
	return nil
}

// RemoveItem удаляет ключ. Удаление отсутствующего ключа ничего не рассылает
func (s *MemoryLocalStorage) RemoveItem(key string) error {
	s.origin.mu.Lock()
	_, existed := s.origin.items[key]
	delete(s.origin.items, key)
	s.origin.mu.Unlock()

	if existed {
		s.origin.broadcast(s, models.StorageEvent{Key: key})
	}
	return nil
}

// Clear удаляет все ключи origin
func (s *MemoryLocalStorage) Clear() error {
	s.origin.mu.Lock()
	s.origin.items = make(map[string]string)
	s.origin.mu.Unlock()

	s.origin.broadcast(s, models.StorageEvent{})
	return nil
}

// OnStorage регистрирует обработчик изменений, сделанных другими контекстами
func (s *MemoryLocalStorage) OnStorage(handler func(models.StorageEvent)) func() {
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

// Close отключает контекст от origin
func (s *MemoryLocalStorage) Close() error {
	s.closeOnce.Do(func() {
		s.origin.mu.Lock()
		delete(s.origin.contexts, s)
		s.origin.mu.Unlock()
		close(s.done)
	})
	return nil
}

func (s *MemoryLocalStorage) enqueue(event models.StorageEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}

func (s *MemoryLocalStorage) deliver() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
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
	}
}
