package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/services"
)

// PreferencesController - язык и тема терминала
type PreferencesController struct {
	prefs *services.PreferenceStore
}

func NewPreferencesController(prefs *services.PreferenceStore) *PreferencesController {
	return &PreferencesController{prefs: prefs}
}

// UpdatePreferencesRequest - любое из полей можно не передавать
type UpdatePreferencesRequest struct {
	Language *string         `json:"language"`
	Theme    *services.Theme `json:"theme"`
}

// Get - GET /api/v1/preferences
func (pc *PreferencesController) Get(c *gin.Context) {
	c.JSON(http.StatusOK, pc.prefs.Get())
}

// Update - PUT /api/v1/preferences
func (pc *PreferencesController) Update(c *gin.Context) {
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	if req.Theme != nil {
		if err := pc.prefs.SetTheme(*req.Theme); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестная тема", "details": err.Error()})
			return
		}
	}
	if req.Language != nil {
		if _, err := pc.prefs.SetLanguage(*req.Language); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить язык", "details": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, pc.prefs.Get())
}
