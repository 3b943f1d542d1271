package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

// RouteAction - что делать с навигацией на защищенный маршрут
type RouteAction string

const (
	RouteRenderLoading RouteAction = "render-loading"
	RouteRedirectLogin RouteAction = "redirect-login"
	RouteRedirectHome  RouteAction = "redirect-home"
	RouteRender        RouteAction = "render"
)

const (
	loginPath          = "/login"
	homePath           = "/"
	sessionExpiredPath = "/login?session_expired=true"
)

// RouteDecision - результат проверки маршрута
type RouteDecision struct {
	Action     RouteAction `json:"action"`
	RedirectTo string      `json:"redirectTo,omitempty"`
}

// DecideRoute решает, что показать по состоянию сессии
// Пустой allowedRoles означает "любой вошедший пользователь"; requireAdmin оставляет только ADMIN
// Пользователь без роли (claims не загрузились) роль не проходит и уходит на главную, а не на вход
func DecideRoute(session services.Session, attemptedPath string, allowedRoles []models.UserRole, requireAdmin bool) RouteDecision {
	if session.Loading {
		return RouteDecision{Action: RouteRenderLoading}
	}
	if !session.IsAuthenticated || session.Principal == nil {
		return RouteDecision{Action: RouteRedirectLogin, RedirectTo: LoginRedirect(attemptedPath)}
	}

	roles := allowedRoles
	if requireAdmin {
		roles = []models.UserRole{models.RoleAdmin}
	}
	if len(roles) > 0 && !session.Principal.HasAnyRole(roles...) {
		return RouteDecision{Action: RouteRedirectHome, RedirectTo: homePath}
	}
	return RouteDecision{Action: RouteRender}
}

// LoginRedirect строит ссылку на вход с возвратом на исходный путь
func LoginRedirect(attemptedPath string) string {
	if !isLocalPath(attemptedPath) || attemptedPath == loginPath {
		return loginPath
	}
	return loginPath + "?redirect=" + url.QueryEscape(attemptedPath)
}

// isLocalPath - путь внутри приложения (не "//host" и не абсолютный URL)
// Браузеры читают "\" как "/" и выбрасывают управляющие символы,
// поэтому "/\evil.com" и "/\t/evil.com" ведут на чужой хост
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "://") {
		return false
	}
	for i := 0; i < len(p); i++ {
		if c := p[i]; c == '\\' || c < 0x20 || c == 0x7f {
			return false
		}
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// SessionReader - источник текущей сессии для middleware
type SessionReader interface {
	Session() services.Session
}

// RequireSession защищает маршруты. API маршруты (/api/...) получают JSON,
// страницы получают редирект
func RequireSession(sessions SessionReader, roles ...models.UserRole) gin.HandlerFunc {
	return guard(sessions, roles, false)
}

// RequireAdmin - то же, что RequireSession(ADMIN)
func RequireAdmin(sessions SessionReader) gin.HandlerFunc {
	return guard(sessions, nil, true)
}

func guard(sessions SessionReader, roles []models.UserRole, requireAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Session()
		decision := DecideRoute(session, c.Request.URL.RequestURI(), roles, requireAdmin)

		if decision.Action == RouteRender {
			c.Set(sessionContextKey, session)
			c.Next()
			return
		}

		isAPI := strings.HasPrefix(c.Request.URL.Path, "/api/")
		switch decision.Action {
		case RouteRenderLoading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		case RouteRedirectLogin:
			if isAPI {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":    "Требуется вход",
					"redirect": decision.RedirectTo,
				})
				return
			}
			c.Redirect(http.StatusFound, decision.RedirectTo)
			c.Abort()
		case RouteRedirectHome:
			if isAPI {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":    "Недостаточно прав",
					"redirect": decision.RedirectTo,
				})
				return
			}
			c.Redirect(http.StatusFound, decision.RedirectTo)
			c.Abort()
		}
	}
}

const sessionContextKey = "session"

// sessionFrom возвращает сессию, сохраненную guard-ом
func sessionFrom(c *gin.Context) (services.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return services.Session{}, false
	}
	s, ok := v.(services.Session)
	return s, ok
}
