package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/services"
)

// respondError переводит ошибку сервисов в ответ API
// Истекшая сессия всегда -> 401 с редиректом на вход с флагом session_expired
func respondError(c *gin.Context, message string, err error) {
	var (
		apiErr        *services.APIError
		validationErr *services.ValidationError
	)

	switch {
	case errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":    "Сессия истекла",
			"kind":     "sessionExpired",
			"redirect": sessionExpiredPath,
		})
	case errors.Is(err, services.ErrSurveyAlreadySubmitted):
		c.JSON(http.StatusConflict, gin.H{
			"error": message,
			"kind":  "duplicateSurvey",
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  message,
			"fields": validationErr.Fields,
		})
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error":   message,
			"details": apiErr.Message,
		})
	default:
		log.Printf("❌ %s: %v", message, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   message,
			"details": err.Error(),
		})
	}
}
