package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSessions - сессия, которую задает тест
type fakeSessions struct {
	mu        sync.Mutex
	session   services.Session
	logoutErr error
	logouts   int
}

func (f *fakeSessions) Session() services.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeSessions) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.session = services.Session{}
	return f.logoutErr
}

func signedIn(role models.UserRole) *fakeSessions {
	return &fakeSessions{session: services.Session{
		IsAuthenticated: true,
		Principal:       &models.Principal{ID: "uid-1", Email: "chef@deliciouskitchen.test", Role: role},
	}}
}

func signedOut() *fakeSessions {
	return &fakeSessions{}
}

// stubUser - пользователь провайдера с фиксированными claims
type stubUser struct {
	claims    map[string]any
	claimsErr error
}

func (u *stubUser) UID() string         { return "uid-1" }
func (u *stubUser) Email() string       { return "chef@deliciouskitchen.test" }
func (u *stubUser) DisplayName() string { return "Chef" }

func (u *stubUser) IDToken(ctx context.Context, force bool) (string, error) {
	return "token", nil
}

func (u *stubUser) IDTokenResult(ctx context.Context, force bool) (*services.TokenResult, error) {
	if u.claimsErr != nil {
		return nil, u.claimsErr
	}
	return &services.TokenResult{Token: "token", Claims: u.claims}, nil
}

// stubAuth - провайдер входа по паролю
type stubAuth struct {
	user     services.IdentityUser
	err      error
	signOuts int
}

func (a *stubAuth) SignInWithPassword(ctx context.Context, email, password string) (services.IdentityUser, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.user, nil
}

func (a *stubAuth) SignOut(ctx context.Context) error {
	a.signOuts++
	return nil
}

// newBackend поднимает API ресторана на httptest
func newBackend(t *testing.T, handler http.HandlerFunc) *services.BackendClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return services.NewBackendClient(srv.URL, srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func perform(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
