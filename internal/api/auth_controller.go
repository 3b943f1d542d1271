package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

// PasswordAuthenticator - вход по email и паролю у провайдера идентификации
type PasswordAuthenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (services.IdentityUser, error)
	SignOut(ctx context.Context) error
}

// SessionController - то, что AuthController использует у SessionManager
type SessionController interface {
	SessionReader
	Logout(ctx context.Context) error
}

// AuthController управляет API endpoints для входа и выхода персонала
type AuthController struct {
	auth     PasswordAuthenticator
	sessions SessionController
}

// NewAuthController создает новый контроллер авторизации
func NewAuthController(auth PasswordAuthenticator, sessions SessionController) *AuthController {
	return &AuthController{auth: auth, sessions: sessions}
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Redirect string `json:"redirect"` // Путь, который пользователь пытался открыть
}

// LoginResponse представляет ответ на успешный вход
type LoginResponse struct {
	UID      string          `json:"uid"`
	Email    string          `json:"email"`
	Role     models.UserRole `json:"role"`
	Redirect string          `json:"redirect"`
}

// Login выполняет вход. Войти в терминал могут только ADMIN и KITCHEN,
// остальные сразу выходят
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	user, err := ac.auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		log.Printf("⚠️ Вход %s не удался: %v", req.Email, err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Не удалось войти",
			"kind":  services.AuthErrorKindOf(err),
		})
		return
	}

	result, err := user.IDTokenResult(ctx, true)
	if err != nil {
		ac.auth.SignOut(ctx)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Не удалось получить права пользователя",
			"kind":  services.AuthErrorKindOf(err),
		})
		return
	}

	role := models.RoleFromClaims(result.Claims)
	if !models.CanUseTerminal(role) {
		log.Printf("🔐 Вход %s отклонен: роль %q не допускается в терминал", req.Email, role)
		if err := ac.auth.SignOut(ctx); err != nil {
			log.Printf("⚠️ Ошибка выхода после отказа в доступе: %v", err)
		}
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Доступ запрещен",
			"kind":  services.AuthErrRoleNotAllowed,
		})
		return
	}

	redirect := models.LandingPath(role)
	if isLocalPath(req.Redirect) && req.Redirect != loginPath {
		redirect = req.Redirect
	}

	c.JSON(http.StatusOK, LoginResponse{
		UID:      user.UID(),
		Email:    user.Email(),
		Role:     role,
		Redirect: redirect,
	})
}

// Logout выходит из системы. Локальная сессия очищается даже при ошибке провайдера
// POST /api/v1/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessions.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Ошибка выхода у провайдера, локальная сессия очищена",
			"details":  err.Error(),
			"redirect": loginPath,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": loginPath})
}

// GetSession возвращает текущее состояние сессии
// GET /api/v1/auth/session
func (ac *AuthController) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, ac.sessions.Session())
}

// LoginView описывает страницу входа: какое сообщение показать и куда вернуться
// GET /login
func (ac *AuthController) LoginView(c *gin.Context) {
	notice := ""
	redirect := c.Query("redirect")
	switch {
	case c.Query("session_expired") == "true":
		notice = "sessionExpired"
	case redirect != "":
		notice = "loginRequired"
	}
	if !isLocalPath(redirect) {
		redirect = ""
	}
	c.JSON(http.StatusOK, gin.H{
		"view":     "login",
		"notice":   notice,
		"redirect": redirect,
		"session":  ac.sessions.Session(),
	})
}
