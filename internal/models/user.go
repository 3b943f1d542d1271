package models

import (
	"strings"
	"time"
)

// UserRole представляет роль пользователя в системе
// Роль приходит из custom claims токена провайдера идентификации
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"   // Администратор
	RoleKitchen UserRole = "KITCHEN" // Персонал кухни
	RoleWaiter  UserRole = "WAITER"  // Официант
	RoleNone    UserRole = ""        // Роль не определена (например, claims не загрузились)
)

// ValidRoles - все роли, которые знает система
var ValidRoles = []UserRole{RoleAdmin, RoleKitchen, RoleWaiter}

// NormalizeRole приводит роль к верхнему регистру ("admin" -> "ADMIN")
func NormalizeRole(role string) UserRole {
	return UserRole(strings.ToUpper(strings.TrimSpace(role)))
}

// IsValidRole проверяет, что роль из списка ValidRoles
func IsValidRole(role string) bool {
	normalized := NormalizeRole(role)
	for _, r := range ValidRoles {
		if r == normalized {
			return true
		}
	}
	return false
}

// CanUseTerminal - войти в терминал персонала могут только ADMIN и KITCHEN
func CanUseTerminal(role UserRole) bool {
	return role == RoleAdmin || role == RoleKitchen
}

// LandingPath возвращает страницу по умолчанию после входа
func LandingPath(role UserRole) string {
	switch role {
	case RoleAdmin:
		return "/users"
	case RoleKitchen:
		return "/kitchen"
	default:
		return "/"
	}
}

// RoleLabelKey возвращает i18n ключ названия роли
// Для неизвестной роли возвращается сама роль (или "Unknown")
func RoleLabelKey(role string) string {
	if !IsValidRole(role) {
		if role == "" {
			return "Unknown"
		}
		return role
	}
	return "roles." + string(NormalizeRole(role))
}

// Principal - аутентифицированный пользователь текущей сессии
// Данные копируются только из claims токена провайдера, локально не придумываются
type Principal struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"displayName,omitempty"`
	Role        UserRole       `json:"role,omitempty"`
	RawClaims   map[string]any `json:"claims,omitempty"`
	TokenExpiry time.Time      `json:"tokenExpiry,omitzero"`
}

// IsDegraded - principal без роли (claims не удалось получить)
func (p *Principal) IsDegraded() bool {
	return p.Role == RoleNone
}

// HasAnyRole проверяет, есть ли у пользователя одна из ролей
func (p *Principal) HasAnyRole(roles ...UserRole) bool {
	if p == nil || p.Role == RoleNone {
		return false
	}
	for _, r := range roles {
		if NormalizeRole(string(r)) == p.Role {
			return true
		}
	}
	return false
}

// RoleFromClaims достает роль из custom claims: claim "role",
// либо флаг admin=true как ADMIN
func RoleFromClaims(claims map[string]any) UserRole {
	if role, ok := claims["role"].(string); ok && role != "" {
		return NormalizeRole(role)
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		return RoleAdmin
	}
	return RoleNone
}

// StaffUser - учетная запись сотрудника в API управления пользователями
type StaffUser struct {
	UID         string   `json:"uid"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Role        UserRole `json:"role"`
	Disabled    bool     `json:"disabled"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// IsActive проверяет, активен ли пользователь
func (u *StaffUser) IsActive() bool {
	return !u.Disabled
}

// CreateStaffUserInput - данные для создания сотрудника
type CreateStaffUserInput struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=6"`
	DisplayName string   `json:"displayName" validate:"required,min=2,max=100"`
	Role        UserRole `json:"role" validate:"required,oneof=ADMIN KITCHEN WAITER"`
}

// UpdateStaffUserInput - изменяемые поля сотрудника
type UpdateStaffUserInput struct {
	DisplayName string   `json:"displayName,omitempty" validate:"omitempty,min=2,max=100"`
	Role        UserRole `json:"role,omitempty" validate:"omitempty,oneof=ADMIN KITCHEN WAITER"`
}

// StaffUserFilter - фильтры списка пользователей
type StaffUserFilter struct {
	Name  string
	Email string
	Role  string
	Page  int
	Limit int
}
