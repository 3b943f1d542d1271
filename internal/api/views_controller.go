package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/models"
)

// ViewsController отдает описание защищенных страниц терминала
// Сама разметка живет в клиенте, сервер решает только можно ли ее показать
type ViewsController struct{}

func NewViewsController() *ViewsController {
	return &ViewsController{}
}

// Home - GET /
// Без guard: гость видит витрину, персонал свою стартовую страницу
func (vc *ViewsController) Home(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Session()
		landing := ""
		if session.IsAuthenticated && session.Principal != nil {
			landing = models.LandingPath(session.Principal.Role)
		}
		c.JSON(http.StatusOK, gin.H{
			"view":    "home",
			"landing": landing,
			"session": session,
		})
	}
}

// Page возвращает handler для страницы, прошедшей guard
func (vc *ViewsController) Page(view string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := sessionFrom(c)
		c.JSON(http.StatusOK, gin.H{
			"view":    view,
			"session": session,
		})
	}
}
