package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliciouskitchen/frontend/internal/database"
	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

func newTestEngine(t *testing.T, sessions SessionController) *gin.Engine {
	t.Helper()
	storage := database.NewMemoryLocalStorage()
	t.Cleanup(func() { storage.Close() })

	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			writeJSON(w, http.StatusOK, models.Page[models.StaffUser]{Data: []models.StaffUser{{UID: "u1"}}, Total: 1})
		case "/kitchen/orders":
			writeJSON(w, http.StatusOK, []models.Order{{OrderID: "ord-1", Status: "cooking"}})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		}
	})

	hub := NewHub()
	t.Cleanup(hub.Stop)

	r := gin.New()
	SetupRoutes(r, Deps{
		Auth:        &stubAuth{},
		Sessions:    sessions,
		Backend:     backend,
		Preferences: services.NewPreferenceStore(storage),
		Hub:         hub,
	})
	return r
}

func TestRoutes_Health(t *testing.T) {
	w := perform(newTestEngine(t, signedOut()), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestRoutes_AdminArea(t *testing.T) {
	guest := newTestEngine(t, signedOut())
	assert.Equal(t, http.StatusUnauthorized, perform(guest, http.MethodGet, "/api/v1/users", "").Code)
	w := perform(guest, http.MethodGet, "/analytics", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fanalytics", w.Header().Get("Location"))

	kitchen := newTestEngine(t, signedIn(models.RoleKitchen))
	assert.Equal(t, http.StatusForbidden, perform(kitchen, http.MethodGet, "/api/v1/users", "").Code)

	admin := newTestEngine(t, signedIn(models.RoleAdmin))
	w = perform(admin, http.MethodGet, "/api/v1/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["total"])
}

func TestRoutes_KitchenArea(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleKitchen, models.RoleAdmin} {
		r := newTestEngine(t, signedIn(role))

		w := perform(r, http.MethodGet, "/api/v1/kitchen/orders", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decodeBody(t, w)["total"])

		w = perform(r, http.MethodGet, "/kitchen", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "kitchen", decodeBody(t, w)["view"])
	}

	waiter := newTestEngine(t, signedIn(models.RoleWaiter))
	w := perform(waiter, http.MethodGet, "/kitchen", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestRoutes_Home(t *testing.T) {
	body := decodeBody(t, perform(newTestEngine(t, signedIn(models.RoleAdmin)), http.MethodGet, "/", ""))
	assert.Equal(t, "home", body["view"])
	assert.Equal(t, "/users", body["landing"])

	body = decodeBody(t, perform(newTestEngine(t, signedOut()), http.MethodGet, "/", ""))
	assert.Equal(t, "", body["landing"])
}

func TestRoutes_Preferences(t *testing.T) {
	r := newTestEngine(t, signedOut())

	w := perform(r, http.MethodPut, "/api/v1/preferences", `{"language":"en-US","theme":"dark"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "en", body["language"])
	assert.Equal(t, "dark", body["theme"])

	w = perform(r, http.MethodPut, "/api/v1/preferences", `{"theme":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = decodeBody(t, perform(r, http.MethodGet, "/api/v1/preferences", ""))
	assert.Equal(t, "dark", body["theme"])
}
