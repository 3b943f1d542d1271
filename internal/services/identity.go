package services

import (
	"context"
	"errors"
	"time"

	"deliciouskitchen/frontend/internal/models"
)

// ErrSessionExpired - сессию не удалось восстановить (повторный 401 или ошибка обновления токена)
// Получатель должен отправить пользователя на /login?session_expired=true
var ErrSessionExpired = errors.New("session expired")

// TokenResult - ID токен вместе с его claims и временем истечения
type TokenResult struct {
	Token          string
	Claims         map[string]any
	ExpirationTime time.Time
}

// IdentityUser - пользователь, которого сообщает провайдер идентификации
type IdentityUser interface {
	UID() string
	Email() string
	DisplayName() string
	// IDToken возвращает действующий токен; force=true принудительно обновляет его
	IDToken(ctx context.Context, force bool) (string, error)
	IDTokenResult(ctx context.Context, force bool) (*TokenResult, error)
}

// IdentityProvider - внешний провайдер идентификации
// SubscribeAuthChanges вызывает handler с текущим пользователем (nil, если никто не вошел)
// при каждом изменении; для одного подписчика вызовы никогда не идут параллельно
type IdentityProvider interface {
	SubscribeAuthChanges(handler func(IdentityUser)) (unsubscribe func())
	CurrentUser() IdentityUser
	SignOut(ctx context.Context) error
}

// LocalStorage - постоянное хранилище ключей, общее для всех контекстов origin
// OnStorage доставляет только изменения, сделанные другими контекстами
type LocalStorage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string) error
	OnStorage(handler func(models.StorageEvent)) (remove func())
}
