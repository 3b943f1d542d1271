package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"deliciouskitchen/frontend/internal/models"
)

// ErrSurveyAlreadySubmitted - по заказу уже есть опрос (бэкенд ответил 409)
var ErrSurveyAlreadySubmitted = errors.New("survey already submitted for this order")

// Doer выполняет HTTP запрос (SessionManager добавляет токен и обрабатывает 401)
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError - бэкенд ответил не 2xx
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// ValidationError - входные данные не прошли проверку до отправки на бэкенд
// Fields: имя поля (как в JSON) -> нарушенное правило
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, rule := range e.Fields {
		parts = append(parts, field+": "+rule)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// BackendClient - клиент REST API ресторана
type BackendClient struct {
	baseURL  string
	doer     Doer
	validate *validator.Validate
}

// NewBackendClient создает клиента; все запросы идут через doer
func NewBackendClient(baseURL string, doer Doer) *BackendClient {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &BackendClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		doer:     doer,
		validate: v,
	}
}

// Validate проверяет входную структуру по тегам validate
func (c *BackendClient) Validate(input any) error {
	err := c.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// ==================== Заказы ====================

// GetOrder получает заказ
func (c *BackendClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := c.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder отменяет заказ по запросу клиента. Пустая причина заменяется стандартной
func (c *BackendClient) CancelOrder(ctx context.Context, orderID, reason string) (*models.Order, error) {
	input := models.CancelOrderInput{Reason: strings.TrimSpace(reason)}
	if err := c.Validate(input); err != nil {
		return nil, err
	}
	if input.Reason == "" {
		input.Reason = models.DefaultCancelReason
	}

	var order models.Order
	if err := c.call(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/cancel", nil, input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListKitchenOrders получает заказы для экрана кухни
func (c *BackendClient) ListKitchenOrders(ctx context.Context, status string) ([]models.Order, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var orders []models.Order
	if err := c.call(ctx, http.MethodGet, "/kitchen/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ==================== Пользователи ====================

// ListUsers получает сотрудников с фильтрами
func (c *BackendClient) ListUsers(ctx context.Context, filter models.StaffUserFilter) (*models.Page[models.StaffUser], error) {
	query := url.Values{}
	setIfNotEmpty(query, "name", filter.Name)
	setIfNotEmpty(query, "email", filter.Email)
	setIfNotEmpty(query, "role", filter.Role)
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var page models.Page[models.StaffUser]
	if err := c.call(ctx, http.MethodGet, "/users", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateUser создает сотрудника
func (c *BackendClient) CreateUser(ctx context.Context, input models.CreateStaffUserInput) (*models.StaffUser, error) {
	input.Role = models.NormalizeRole(string(input.Role))
	if err := c.Validate(input); err != nil {
		return nil, err
	}
	var user models.StaffUser
	if err := c.call(ctx, http.MethodPost, "/users", nil, input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser изменяет имя или роль сотрудника
func (c *BackendClient) UpdateUser(ctx context.Context, uid string, input models.UpdateStaffUserInput) (*models.StaffUser, error) {
	if input.Role != "" {
		input.Role = models.NormalizeRole(string(input.Role))
	}
	if err := c.Validate(input); err != nil {
		return nil, err
	}
	var user models.StaffUser
	if err := c.call(ctx, http.MethodPut, "/users/"+url.PathEscape(uid), nil, input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeactivateUser отключает учетную запись сотрудника
func (c *BackendClient) DeactivateUser(ctx context.Context, uid string) (*models.StaffUser, error) {
	var user models.StaffUser
	if err := c.call(ctx, http.MethodPatch, "/users/"+url.PathEscape(uid)+"/disable", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PasswordReset - ответ на сброс пароля
type PasswordReset struct {
	Message   string `json:"message"`
	ResetLink string `json:"resetLink,omitempty"`
}

// ResetUserPassword запускает сброс пароля сотрудника
func (c *BackendClient) ResetUserPassword(ctx context.Context, uid string) (*PasswordReset, error) {
	var reset PasswordReset
	if err := c.call(ctx, http.MethodPost, "/users/"+url.PathEscape(uid)+"/reset-password", nil, nil, &reset); err != nil {
		return nil, err
	}
	return &reset, nil
}

// DeleteUser удаляет сотрудника
func (c *BackendClient) DeleteUser(ctx context.Context, uid string) error {
	return c.call(ctx, http.MethodDelete, "/users/"+url.PathEscape(uid), nil, nil, nil)
}

// ==================== Отзывы и опросы ====================

// SubmitReview отправляет публичный отзыв
func (c *BackendClient) SubmitReview(ctx context.Context, input models.ReviewInput) (*models.Review, error) {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	input.Comment = strings.TrimSpace(input.Comment)
	if err := c.Validate(input); err != nil {
		return nil, err
	}

	var envelope struct {
		Data models.Review `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/reviews", nil, input, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// ListReviews получает страницу отзывов (для администратора)
func (c *BackendClient) ListReviews(ctx context.Context, page, limit int) (*models.Page[models.Review], error) {
	var out models.Page[models.Review]
	if err := c.call(ctx, http.MethodGet, "/reviews", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitSurvey отправляет опрос по заказу
// Повторный опрос по тому же заказу -> ErrSurveyAlreadySubmitted
func (c *BackendClient) SubmitSurvey(ctx context.Context, input models.SurveyInput) (*models.Survey, error) {
	input.Comment = strings.TrimSpace(input.Comment)
	if input.CustomerEmail == "" {
		input.CustomerEmail = models.DefaultSurveyEmail
	}
	if err := c.Validate(input); err != nil {
		return nil, err
	}

	var envelope struct {
		Data models.Survey `json:"data"`
	}
	err := c.call(ctx, http.MethodPost, "/surveys", nil, input, &envelope)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return nil, ErrSurveyAlreadySubmitted
	}
	if err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// CheckSurvey проверяет, есть ли уже опрос по номеру заказа
func (c *BackendClient) CheckSurvey(ctx context.Context, orderNumber string) (bool, error) {
	var check models.SurveyCheck
	if err := c.call(ctx, http.MethodGet, "/surveys/check/"+url.PathEscape(orderNumber), nil, nil, &check); err != nil {
		return false, err
	}
	return check.HasSurvey, nil
}

// ListSurveys получает страницу опросов (для администратора)
// Бэкенд отвечает {success, surveys, total, page, totalPages}
func (c *BackendClient) ListSurveys(ctx context.Context, page, limit int) (*models.Page[models.Survey], error) {
	var resp struct {
		Surveys    []models.Survey `json:"surveys"`
		Total      int             `json:"total"`
		Page       int             `json:"page"`
		TotalPages int             `json:"totalPages"`
	}
	if err := c.call(ctx, http.MethodGet, "/surveys", pageQuery(page, limit), nil, &resp); err != nil {
		return nil, err
	}

	out := &models.Page[models.Survey]{
		Data:       resp.Surveys,
		Page:       resp.Page,
		Limit:      limit,
		Total:      resp.Total,
		TotalPages: resp.TotalPages,
	}
	if out.Data == nil {
		out.Data = []models.Survey{}
	}
	if out.Page == 0 {
		out.Page = 1
	}
	if out.TotalPages == 0 {
		out.TotalPages = 1
	}
	if out.Total == 0 {
		out.Total = len(out.Data)
	}
	return out, nil
}

// ==================== Аналитика ====================

// GetSalesAnalytics получает аналитику продаж (все расчеты на бэкенде)
func (c *BackendClient) GetSalesAnalytics(ctx context.Context, filter models.SalesAnalyticsFilter) (*models.SalesAnalytics, error) {
	query := url.Values{}
	setIfNotEmpty(query, "from", filter.From)
	setIfNotEmpty(query, "to", filter.To)
	setIfNotEmpty(query, "groupBy", filter.GroupBy)
	setIfNotEmpty(query, "product", filter.Product)

	var analytics models.SalesAnalytics
	if err := c.call(ctx, http.MethodGet, "/analytics/sales", query, nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}

// call выполняет запрос и декодирует JSON ответ в out (если out != nil)
func (c *BackendClient) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return err
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}

// maxErrorText - предел длины сырого тела ошибки в байтах
const maxErrorText = 200

// errorMessage достает текст ошибки из {"message": ...} или {"error": ...}
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorText {
		// Режем по границе руны, чтобы не оставить половину символа
		n := maxErrorText
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	return text
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
