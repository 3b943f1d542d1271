package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

// StaffController - управление учетными записями сотрудников (только ADMIN)
type StaffController struct {
	backend *services.BackendClient
}

// NewStaffController создает контроллер сотрудников
func NewStaffController(backend *services.BackendClient) *StaffController {
	return &StaffController{backend: backend}
}

// ListUsers возвращает сотрудников с фильтрами ?name=&email=&role=&page=&limit=
// GET /api/v1/users
func (sc *StaffController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	filter := models.StaffUserFilter{
		Name:  c.Query("name"),
		Email: c.Query("email"),
		Role:  string(models.NormalizeRole(c.Query("role"))),
		Page:  page,
		Limit: limit,
	}

	users, err := sc.backend.ListUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "Ошибка получения пользователей", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser создает сотрудника
// POST /api/v1/users
func (sc *StaffController) CreateUser(c *gin.Context) {
	var input models.CreateStaffUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные параметры запроса", "details": err.Error()})
		return
	}
	user, err := sc.backend.CreateUser(c.Request.Context(), input)
	if err != nil {
		respondError(c, "Ошибка создания пользователя", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUser изменяет сотрудника
// PUT /api/v1/users/:id
func (sc *StaffController) UpdateUser(c *gin.Context) {
	var input models.UpdateStaffUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные параметры запроса", "details": err.Error()})
		return
	}
	user, err := sc.backend.UpdateUser(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, "Ошибка обновления пользователя", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeactivateUser отключает сотрудника
// PATCH /api/v1/users/:id/disable
func (sc *StaffController) DeactivateUser(c *gin.Context) {
	user, err := sc.backend.DeactivateUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Ошибка отключения пользователя", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ResetPassword запускает сброс пароля
// POST /api/v1/users/:id/reset-password
func (sc *StaffController) ResetPassword(c *gin.Context) {
	reset, err := sc.backend.ResetUserPassword(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Ошибка сброса пароля", err)
		return
	}
	c.JSON(http.StatusOK, reset)
}

// DeleteUser удаляет сотрудника
// DELETE /api/v1/users/:id
func (sc *StaffController) DeleteUser(c *gin.Context) {
	if err := sc.backend.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Ошибка удаления пользователя", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListRoles возвращает роли с i18n ключами для формы сотрудника
// GET /api/v1/users/roles
func (sc *StaffController) ListRoles(c *gin.Context) {
	roles := make([]gin.H, 0, len(models.ValidRoles))
	for _, r := range models.ValidRoles {
		roles = append(roles, gin.H{"value": r, "labelKey": models.RoleLabelKey(string(r))})
	}
	c.JSON(http.StatusOK, gin.H{"data": roles})
}
