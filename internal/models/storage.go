package models

// Ключи постоянного хранилища терминала (общие для всех контекстов одного origin)
const (
	// Маркеры сессии - очищаются при выходе
	StorageKeyUser         = "user"
	StorageKeyAuthToken    = "authToken"
	StorageKeyRefreshToken = "refreshToken"

	// Настройки - переживают выход из системы
	StorageKeyLanguage = "i18nextLng"
	StorageKeyTheme    = "theme"
)

// SessionMarkerKeys - ключи, которые удаляются при любом выходе из сессии
var SessionMarkerKeys = []string{StorageKeyUser, StorageKeyAuthToken, StorageKeyRefreshToken}

// StorageEvent - уведомление о том, что другой контекст изменил ключ
// Key == "" означает полную очистку хранилища
// NewValue == "" означает, что ключ удален
type StorageEvent struct {
	Key      string `json:"key"`
	NewValue string `json:"newValue"`
}

// IsRemoval - ключ удален (или хранилище очищено целиком)
func (e StorageEvent) IsRemoval() bool {
	return e.NewValue == ""
}

// StoredUser - содержимое маркера "user"
type StoredUser struct {
	UID   string   `json:"uid"`
	Email string   `json:"email"`
	Role  UserRole `json:"role,omitempty"`
}
