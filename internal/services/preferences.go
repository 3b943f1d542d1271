package services

import (
	"fmt"
	"log"

	"golang.org/x/text/language"

	"deliciouskitchen/frontend/internal/models"
)

// Theme - тема интерфейса
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// legacyLanguageKey - ключ, под которым язык хранился раньше
const legacyLanguageKey = "language"

// SupportedLanguages - языки интерфейса; первый используется по умолчанию
var SupportedLanguages = []language.Tag{language.Spanish, language.English}

var languageMatcher = language.NewMatcher(SupportedLanguages)

// Preferences - настройки терминала (язык и тема). Они переживают выход из системы
type Preferences struct {
	Language string `json:"language"`
	Theme    Theme  `json:"theme"`
}

// PreferenceStore читает и пишет настройки в LocalStorage
type PreferenceStore struct {
	storage LocalStorage
}

// NewPreferenceStore создает хранилище настроек
func NewPreferenceStore(storage LocalStorage) *PreferenceStore {
	return &PreferenceStore{storage: storage}
}

// Get возвращает текущие настройки с учетом значений по умолчанию
func (p *PreferenceStore) Get() Preferences {
	raw, ok := p.storage.GetItem(models.StorageKeyLanguage)
	if !ok {
		raw, _ = p.storage.GetItem(legacyLanguageKey)
	}

	theme := ThemeLight
	if t, ok := p.storage.GetItem(models.StorageKeyTheme); ok && Theme(t) == ThemeDark {
		theme = ThemeDark
	}

	return Preferences{Language: MatchLanguage(raw), Theme: theme}
}

// SetLanguage сохраняет язык, приведенный к поддерживаемому
func (p *PreferenceStore) SetLanguage(raw string) (string, error) {
	lang := MatchLanguage(raw)
	if err := p.storage.SetItem(models.StorageKeyLanguage, lang); err != nil {
		return "", fmt.Errorf("failed to save language: %w", err)
	}
	return lang, nil
}

// SetTheme сохраняет тему
func (p *PreferenceStore) SetTheme(theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	if err := p.storage.SetItem(models.StorageKeyTheme, string(theme)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// MatchLanguage приводит BCP 47 тег ("en-US", "es_419") к поддерживаемому базовому языку
// Пустое или нераспознанное значение -> es
func MatchLanguage(raw string) string {
	if raw == "" {
		return baseLanguage(SupportedLanguages[0])
	}
	tag, err := language.Parse(raw)
	if err != nil {
		log.Printf("⚠️ Preferences: некорректный язык %q, используем %s", raw, baseLanguage(SupportedLanguages[0]))
		return baseLanguage(SupportedLanguages[0])
	}
	_, index, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return baseLanguage(SupportedLanguages[0])
	}
	return baseLanguage(SupportedLanguages[index])
}

func baseLanguage(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
