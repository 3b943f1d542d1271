package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

const defaultPageLimit = 20

// FeedbackController - отзывы и опросы
type FeedbackController struct {
	backend *services.BackendClient
}

func NewFeedbackController(backend *services.BackendClient) *FeedbackController {
	return &FeedbackController{backend: backend}
}

// SubmitReview - POST /api/v1/reviews (публичный)
func (fc *FeedbackController) SubmitReview(c *gin.Context) {
	var input models.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}
	review, err := fc.backend.SubmitReview(c.Request.Context(), input)
	if err != nil {
		respondError(c, "Не удалось отправить отзыв", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": review})
}

// ListReviews - GET /api/v1/reviews (ADMIN)
func (fc *FeedbackController) ListReviews(c *gin.Context) {
	page, limit := pageParams(c)
	reviews, err := fc.backend.ListReviews(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, "Не удалось получить отзывы", err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// SubmitSurvey - POST /api/v1/surveys (публичный)
// Повторный опрос по заказу -> 409
func (fc *FeedbackController) SubmitSurvey(c *gin.Context) {
	var input models.SurveyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}
	survey, err := fc.backend.SubmitSurvey(c.Request.Context(), input)
	if err != nil {
		respondError(c, "Не удалось отправить опрос", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": survey})
}

// CheckSurvey - GET /api/v1/surveys/check/:orderNumber
func (fc *FeedbackController) CheckSurvey(c *gin.Context) {
	has, err := fc.backend.CheckSurvey(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondError(c, "Не удалось проверить опрос", err)
		return
	}
	c.JSON(http.StatusOK, models.SurveyCheck{HasSurvey: has})
}

// ListSurveys - GET /api/v1/surveys (ADMIN)
func (fc *FeedbackController) ListSurveys(c *gin.Context) {
	page, limit := pageParams(c)
	surveys, err := fc.backend.ListSurveys(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, "Не удалось получить опросы", err)
		return
	}
	c.JSON(http.StatusOK, surveys)
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 || limit > 100 {
		limit = defaultPageLimit
	}
	return page, limit
}
