package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliciouskitchen/frontend/internal/database"
	"deliciouskitchen/frontend/internal/models"
)

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// fakeFirebase - identity toolkit и secure token service в одном сервере
type fakeFirebase struct {
	t         *testing.T
	srv       *httptest.Server
	refreshes int32

	// revoked=true: token endpoint отвечает 400 TOKEN_EXPIRED
	revoked atomic.Bool
}

func newFakeFirebase(t *testing.T) *fakeFirebase {
	f := &fakeFirebase{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Password {
		case "secret":
			writeJSON(w, http.StatusOK, map[string]any{
				"localId":      "uid-1",
				"email":        req.Email,
				"displayName":  "Chef",
				"idToken":      f.idToken("KITCHEN", req.Email),
				"refreshToken": "refresh-1",
				"expiresIn":    "3600",
			})
		case "throttled":
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": 400, "message": "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled"},
			})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": 400, "message": "INVALID_PASSWORD"},
			})
		}
	})
	mux.HandleFunc("/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		atomic.AddInt32(&f.refreshes, 1)

		if f.revoked.Load() {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": 400, "message": "TOKEN_EXPIRED"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id_token":      f.idToken("ADMIN", "admin@deliciouskitchen.test"),
			"refresh_token": r.PostForm.Get("refresh_token"),
			"expires_in":    "3600",
			"user_id":       "uid-1",
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFirebase) idToken(role, email string) string {
	return signTestToken(f.t, jwt.MapClaims{
		"sub":   "uid-1",
		"email": email,
		"name":  "Chef",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

func (f *fakeFirebase) refreshCount() int {
	return int(atomic.LoadInt32(&f.refreshes))
}

func (f *fakeFirebase) client(storage LocalStorage) *FirebaseClient {
	c := NewFirebaseClient(FirebaseConfig{
		APIKey:   "test-key",
		AuthURL:  f.srv.URL,
		TokenURL: f.srv.URL + "/",
	}, storage)
	f.t.Cleanup(c.Close)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// collectAuthChanges подписывается на клиента и отдает уведомления в канал
func collectAuthChanges(t *testing.T, c *FirebaseClient) <-chan IdentityUser {
	t.Helper()
	ch := make(chan IdentityUser, 16)
	unsubscribe := c.SubscribeAuthChanges(func(u IdentityUser) { ch <- u })
	t.Cleanup(unsubscribe)
	return ch
}

func nextAuthChange(t *testing.T, ch <-chan IdentityUser) IdentityUser {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("auth change was not delivered")
		return nil
	}
}

func TestFirebaseClient_SignInWithPassword(t *testing.T) {
	fb := newFakeFirebase(t)
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	client := fb.client(storage)
	changes := collectAuthChanges(t, client)

	user, err := client.SignInWithPassword(context.Background(), "chef@deliciouskitchen.test", "secret")
	require.NoError(t, err)

	assert.Equal(t, "uid-1", user.UID())
	assert.Equal(t, "Chef", user.DisplayName())

	result, err := user.IDTokenResult(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, models.RoleKitchen, models.RoleFromClaims(result.Claims))
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpirationTime, 5*time.Second)
	// Кешированный токен, запроса к token endpoint не было
	assert.Equal(t, 0, fb.refreshCount())

	refreshToken, ok := storage.GetItem(models.StorageKeyRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "refresh-1", refreshToken)
	authToken, _ := storage.GetItem(models.StorageKeyAuthToken)
	assert.Equal(t, result.Token, authToken)

	delivered := nextAuthChange(t, changes)
	require.NotNil(t, delivered)
	assert.Equal(t, "uid-1", delivered.UID())
	assert.Equal(t, "uid-1", client.CurrentUser().UID())
}

func TestFirebaseClient_SignInErrors(t *testing.T) {
	fb := newFakeFirebase(t)
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	client := fb.client(storage)

	_, err := client.SignInWithPassword(context.Background(), "chef@deliciouskitchen.test", "wrong")
	require.Error(t, err)
	assert.Equal(t, AuthErrWrongPassword, AuthErrorKindOf(err))

	_, err = client.SignInWithPassword(context.Background(), "chef@deliciouskitchen.test", "throttled")
	require.Error(t, err)
	assert.Equal(t, AuthErrTooManyRequests, AuthErrorKindOf(err))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "TOO_MANY_ATTEMPTS_TRY_LATER", authErr.Code)

	assert.Nil(t, client.CurrentUser())
	_, ok := storage.GetItem(models.StorageKeyRefreshToken)
	assert.False(t, ok)
}

func TestFirebaseClient_NotifiesOnlyAfterRestore(t *testing.T) {
	fb := newFakeFirebase(t)
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	client := fb.client(storage)
	changes := collectAuthChanges(t, client)

	select {
	case <-changes:
		t.Fatal("notification before restore")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, client.Restore(context.Background()))
	assert.Nil(t, nextAuthChange(t, changes))
	assert.Equal(t, 0, fb.refreshCount())
}

func TestFirebaseClient_RestoreFromRefreshToken(t *testing.T) {
	fb := newFakeFirebase(t)
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	require.NoError(t, storage.SetItem(models.StorageKeyRefreshToken, "refresh-7"))

	client := fb.client(storage)
	changes := collectAuthChanges(t, client)

	require.NoError(t, client.Restore(context.Background()))

	user := nextAuthChange(t, changes)
	require.NotNil(t, user)
	assert.Equal(t, "uid-1", user.UID())
	assert.Equal(t, "admin@deliciouskitchen.test", user.Email())
	assert.Equal(t, 1, fb.refreshCount())

	_, ok := storage.GetItem(models.StorageKeyAuthToken)
	assert.True(t, ok)
}

func TestFirebaseClient_RestoreWithRevokedToken(t *testing.T) {
	fb := newFakeFirebase(t)
	fb.revoked.Store(true)
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	require.NoError(t, storage.SetItem(models.StorageKeyRefreshToken, "refresh-7"))
	require.NoError(t, storage.SetItem(models.StorageKeyAuthToken, "stale"))

	client := fb.client(storage)
	changes := collectAuthChanges(t, client)

	err := client.Restore(context.Background())

	var refreshErr *TokenRefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.True(t, refreshErr.Revoked)
	assert.Nil(t, nextAuthChange(t, changes))

	_, ok := storage.GetItem(models.StorageKeyRefreshToken)
	assert.False(t, ok)
	_, ok = storage.GetItem(models.StorageKeyAuthToken)
	assert.False(t, ok)
}

func TestFirebaseClient_ForcedRefresh(t *testing.T) {
	fb := newFakeFirebase(t)
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	client := fb.client(storage)

	user, err := client.SignInWithPassword(context.Background(), "chef@deliciouskitchen.test", "secret")
	require.NoError(t, err)

	result, err := user.IDTokenResult(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, fb.refreshCount())
	// Роль берется из нового токена
	assert.Equal(t, models.RoleAdmin, models.RoleFromClaims(result.Claims))

	authToken, _ := storage.GetItem(models.StorageKeyAuthToken)
	assert.Equal(t, result.Token, authToken)
}

func TestFirebaseClient_RevokedRefreshSignsOut(t *testing.T) {
	fb := newFakeFirebase(t)
	storage := database.NewMemoryLocalStorage()
	defer storage.Close()
	client := fb.client(storage)
	changes := collectAuthChanges(t, client)

	user, err := client.SignInWithPassword(context.Background(), "chef@deliciouskitchen.test", "secret")
	require.NoError(t, err)
	require.NotNil(t, nextAuthChange(t, changes))

	fb.revoked.Store(true)
	_, err = user.IDToken(context.Background(), true)

	var refreshErr *TokenRefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.True(t, refreshErr.Revoked)
	assert.Nil(t, nextAuthChange(t, changes))
	assert.Nil(t, client.CurrentUser())
}

func TestFirebaseClient_FollowsOtherContext(t *testing.T) {
	fb := newFakeFirebase(t)
	origin := database.NewMemoryOrigin()
	tabA := origin.NewContext()
	tabB := origin.NewContext()
	defer tabA.Close()
	defer tabB.Close()

	clientA := fb.client(tabA)
	clientB := fb.client(tabB)
	require.NoError(t, clientB.Restore(context.Background()))
	changesB := collectAuthChanges(t, clientB)
	require.Nil(t, nextAuthChange(t, changesB))

	_, err := clientA.SignInWithPassword(context.Background(), "chef@deliciouskitchen.test", "secret")
	require.NoError(t, err)

	adopted := nextAuthChange(t, changesB)
	require.NotNil(t, adopted)
	assert.Equal(t, "uid-1", adopted.UID())

	require.NoError(t, clientA.SignOut(context.Background()))
	assert.Nil(t, nextAuthChange(t, changesB))
	assert.Nil(t, clientB.CurrentUser())
}
