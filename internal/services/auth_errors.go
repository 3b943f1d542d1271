package services

import (
	"errors"
	"fmt"
	"strings"
)

// AuthErrorKind - структурированный тип ошибки входа, текст подбирает UI
type AuthErrorKind string

const (
	AuthErrWrongPassword       AuthErrorKind = "wrongPassword"
	AuthErrUserNotFound        AuthErrorKind = "userNotFound"
	AuthErrUserDisabled        AuthErrorKind = "userDisabled"
	AuthErrTooManyRequests     AuthErrorKind = "tooManyRequests"
	AuthErrInvalidEmail        AuthErrorKind = "invalidEmail"
	AuthErrEmailInUse          AuthErrorKind = "emailInUse"
	AuthErrWeakPassword        AuthErrorKind = "weakPassword"
	AuthErrOperationNotAllowed AuthErrorKind = "operationNotAllowed"
	AuthErrInvalidCredentials  AuthErrorKind = "invalidCredentials"
	AuthErrNetwork             AuthErrorKind = "networkError"
	AuthErrRequiresRecentLogin AuthErrorKind = "requiresRecentLogin"
	AuthErrRoleNotAllowed      AuthErrorKind = "roleNotAllowed"
	AuthErrGeneric             AuthErrorKind = "generic"
)

// authErrorKinds сопоставляет коды ошибок REST API Firebase Auth с типами
var authErrorKinds = map[string]AuthErrorKind{
	"INVALID_PASSWORD":            AuthErrWrongPassword,
	"EMAIL_NOT_FOUND":             AuthErrUserNotFound,
	"USER_NOT_FOUND":              AuthErrUserNotFound,
	"USER_DISABLED":               AuthErrUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER": AuthErrTooManyRequests,
	"INVALID_EMAIL":               AuthErrInvalidEmail,
	"EMAIL_EXISTS":                AuthErrEmailInUse,
	"WEAK_PASSWORD":               AuthErrWeakPassword,
	"OPERATION_NOT_ALLOWED":       AuthErrOperationNotAllowed,
	"PASSWORD_LOGIN_DISABLED":     AuthErrOperationNotAllowed,
	"INVALID_LOGIN_CREDENTIALS":   AuthErrInvalidCredentials,

	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": AuthErrRequiresRecentLogin,
}

// AuthError - ошибка провайдера идентификации
type AuthError struct {
	Code string // Код провайдера, например INVALID_PASSWORD
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error %s (%s): %v", e.Code, e.Kind, e.Err)
	}
	return fmt.Sprintf("auth error %s (%s)", e.Code, e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// newAuthError разбирает сообщение REST API. Firebase иногда дописывает
// пояснение после кода: "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account..."
func newAuthError(message string) *AuthError {
	code := strings.TrimSpace(message)
	if i := strings.IndexAny(code, " :"); i > 0 {
		code = code[:i]
	}
	kind, ok := authErrorKinds[code]
	if !ok {
		kind = AuthErrGeneric
	}
	return &AuthError{Code: code, Kind: kind}
}

// AuthErrorKindOf возвращает тип ошибки входа (generic для всего прочего)
func AuthErrorKindOf(err error) AuthErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	var refreshErr *TokenRefreshError
	if errors.As(err, &refreshErr) && !refreshErr.Revoked {
		return AuthErrNetwork
	}
	return AuthErrGeneric
}

// TokenRefreshError - не удалось обновить ID токен
// Revoked=true: refresh token отозван или пользователь отключен, нужно войти заново
type TokenRefreshError struct {
	Revoked bool
	Err     error
}

func (e *TokenRefreshError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("token revoked: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}
