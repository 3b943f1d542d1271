package models

import (
	"time"
)

// ReviewInput - публичный отзыв о блюдах (виден после модерации)
type ReviewInput struct {
	OrderNumber   string `json:"orderNumber,omitempty"`
	CustomerName  string `json:"customerName" validate:"required,min=2,max=100"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	FoodRating    int    `json:"foodRating" validate:"required,min=1,max=5"`
	TasteRating   int    `json:"tasteRating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=500"`
}

// Review - отзыв в ответах API
type Review struct {
	ID            string    `json:"id"`
	OrderNumber   string    `json:"orderNumber,omitempty"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	FoodRating    int       `json:"foodRating"`
	TasteRating   int       `json:"tasteRating"`
	Comment       string    `json:"comment,omitempty"`
	Status        string    `json:"status,omitempty"` // pending / approved / hidden
	CreatedAt     time.Time `json:"createdAt"`
}

// SurveyInput - опрос о процессе обслуживания (без модерации, не обязателен)
type SurveyInput struct {
	OrderNumber    string `json:"orderNumber" validate:"required"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail" validate:"omitempty,email"`
	WaitTimeRating int    `json:"waitTimeRating" validate:"required,min=1,max=5"`
	ServiceRating  int    `json:"serviceRating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=500"`
}

// DefaultSurveyEmail подставляется, если у заказа нет email клиента
const DefaultSurveyEmail = "customer@example.com"

// Survey - опрос в ответах API
type Survey struct {
	ID             string    `json:"id"`
	OrderNumber    string    `json:"orderNumber"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail,omitempty"`
	WaitTimeRating int       `json:"waitTimeRating"`
	ServiceRating  int       `json:"serviceRating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Page - страница списка из API
type Page[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// SurveyCheck - ответ проверки, есть ли уже опрос по заказу
type SurveyCheck struct {
	HasSurvey bool `json:"hasSurvey"`
}
