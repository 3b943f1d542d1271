package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliciouskitchen/frontend/internal/database"
	"deliciouskitchen/frontend/internal/models"
)

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "es"},
		{"es", "es"},
		{"es-419", "es"},
		{"en", "en"},
		{"en-US", "en"},
		{"fr", "es"},
		{"!!", "es"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchLanguage(tt.raw))
		})
	}
}

func TestPreferenceStore_Defaults(t *testing.T) {
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()

	prefs := NewPreferenceStore(storage).Get()
	assert.Equal(t, Preferences{Language: "es", Theme: ThemeLight}, prefs)
}

func TestPreferenceStore_LegacyLanguageKey(t *testing.T) {
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	require.NoError(t, storage.SetItem("language", "en-GB"))

	store := NewPreferenceStore(storage)
	assert.Equal(t, "en", store.Get().Language)

	// Новый ключ важнее старого
	require.NoError(t, storage.SetItem(models.StorageKeyLanguage, "es"))
	assert.Equal(t, "es", store.Get().Language)
}

func TestPreferenceStore_Set(t *testing.T) {
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	store := NewPreferenceStore(storage)

	lang, err := store.SetLanguage("en-US")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	stored, _ := storage.GetItem(models.StorageKeyLanguage)
	assert.Equal(t, "en", stored)

	require.NoError(t, store.SetTheme(ThemeDark))
	assert.Equal(t, ThemeDark, store.Get().Theme)

	assert.Error(t, store.SetTheme("sepia"))
	assert.Equal(t, ThemeDark, store.Get().Theme)
}

func TestPreferenceStore_UnknownStoredTheme(t *testing.T) {
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	require.NoError(t, storage.SetItem(models.StorageKeyTheme, "DARK"))

	assert.Equal(t, ThemeLight, NewPreferenceStore(storage).Get().Theme)
}
