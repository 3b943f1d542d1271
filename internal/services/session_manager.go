package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"deliciouskitchen/frontend/internal/models"
)

// SessionState - состояние сессии терминала
type SessionState int

const (
	StateInitializing SessionState = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Session - снимок состояния аутентификации для UI и route guard
type Session struct {
	IsAuthenticated bool              `json:"isAuthenticated"`
	Principal       *models.Principal `json:"principal"`
	Loading         bool              `json:"loading"`
}

const (
	// DefaultRenewalMargin - за сколько до истечения токена запускается обновление
	DefaultRenewalMargin = 5 * time.Minute

	providerCallTimeout = 10 * time.Second
)

// SessionOption настраивает SessionManager
type SessionOption func(*SessionManager)

// WithClock подменяет часы (в тестах clockwork.NewFakeClock)
func WithClock(clock clockwork.Clock) SessionOption {
	return func(m *SessionManager) { m.clock = clock }
}

// WithHTTPClient задает клиент для Do
func WithHTTPClient(client *http.Client) SessionOption {
	return func(m *SessionManager) { m.httpClient = client }
}

// WithRenewalMargin меняет запас времени до истечения токена
func WithRenewalMargin(margin time.Duration) SessionOption {
	return func(m *SessionManager) {
		if margin > 0 {
			m.renewalMargin = margin
		}
	}
}

// SessionManager - единственный источник правды о том, кто вошел в терминал
// Синхронизируется с провайдером идентификации, обновляет токен заранее,
// восстанавливает запросы после 401 и реагирует на выход в других контекстах
type SessionManager struct {
	provider      IdentityProvider
	storage       LocalStorage
	clock         clockwork.Clock
	httpClient    *http.Client
	renewalMargin time.Duration

	mu        sync.Mutex
	state     SessionState
	principal *models.Principal
	user      IdentityUser
	active    bool

	// epoch растет при каждом сбросе сессии: результаты запросов claims,
	// начатых до сброса, отбрасываются
	epoch uint64

	// Один таймер обновления на сессию; renewalGen отсекает устаревшие срабатывания
	renewalTimer clockwork.Timer
	renewalGen   uint64

	listeners    map[int]func(Session)
	nextListener int

	refreshGroup singleflight.Group
}

// NewSessionManager создает менеджер в состоянии Initializing
func NewSessionManager(provider IdentityProvider, storage LocalStorage, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		provider:      provider,
		storage:       storage,
		clock:         clockwork.NewRealClock(),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		renewalMargin: DefaultRenewalMargin,
		state:         StateInitializing,
		listeners:     make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe подписывается на изменения провайдера и на события хранилища
// Возвращаемую функцию нужно вызвать при остановке; повторный вызов ничего не делает
func (m *SessionManager) Subscribe() func() {
	m.mu.Lock()
	m.active = true
	m.mu.Unlock()

	unsubscribeProvider := m.provider.SubscribeAuthChanges(m.handleAuthChange)
	removeStorage := m.storage.OnStorage(m.handleStorageEvent)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribeProvider()
			removeStorage()

			m.mu.Lock()
			m.active = false
			m.epoch++
			m.stopRenewalLocked()
			m.mu.Unlock()
		})
	}
}

// Session возвращает текущий снимок состояния
func (m *SessionManager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionLocked()
}

// State возвращает текущее состояние
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange регистрирует слушателя изменений сессии
// Слушатели могут вызываться из разных горутин
func (m *SessionManager) OnChange(listener func(Session)) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Logout выходит у провайдера и всегда очищает локальную сессию,
// даже если провайдер вернул ошибку
func (m *SessionManager) Logout(ctx context.Context) error {
	err := m.provider.SignOut(ctx)
	m.forceLogout("logout")
	if err != nil {
		log.Printf("❌ Session: ошибка выхода у провайдера (локальная сессия очищена): %v", err)
		return fmt.Errorf("failed to sign out: %w", err)
	}
	log.Println("✅ Session: выход выполнен")
	return nil
}

// Do выполняет запрос к бэкенду с Bearer токеном текущего пользователя
// На первый 401 токен принудительно обновляется и запрос повторяется один раз;
// повторный 401 или ошибка обновления завершают сессию с ErrSessionExpired
func (m *SessionManager) Do(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}
	ctx := req.Context()

	m.mu.Lock()
	user := m.user
	m.mu.Unlock()

	var token string
	if user != nil {
		t, err := user.IDToken(ctx, false)
		if err != nil {
			log.Printf("⚠️ Session: не удалось получить токен, запрос уйдет без него: %v", err)
		}
		token = t
	}

	resp, err := m.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	discard(resp)

	if user == nil {
		m.expireSession()
		return nil, ErrSessionExpired
	}

	log.Printf("🔄 Session: 401 на %s %s, обновляем токен и повторяем", req.Method, req.URL.Path)
	result, err := m.refresh(ctx, user)
	if err != nil {
		// Запрос отменил сам вызывающий: сессия от этого не становится недействительной
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("⚠️ Session: обновление токена после 401 не удалось: %v", err)
		m.expireSession()
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	m.adoptToken(user, result)

	resp, err = m.send(req, result.Token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		log.Printf("❌ Session: повторный 401 на %s %s", req.Method, req.URL.Path)
		m.expireSession()
		return nil, ErrSessionExpired
	}
	return resp, nil
}

func (m *SessionManager) send(orig *http.Request, token string) (*http.Response, error) {
	req := orig.Clone(orig.Context())
	if orig.GetBody != nil {
		body, err := orig.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to replay request body: %w", err)
		}
		req.Body = body
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}
	return m.httpClient.Do(req)
}

// bufferBody делает тело запроса повторно читаемым
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// refresh принудительно обновляет токен; параллельные обновления
// (таймер и 401) одного пользователя сливаются в один вызов
// Общий вызов не зависит от отмены контекста того, кто его начал
func (m *SessionManager) refresh(ctx context.Context, user IdentityUser) (*TokenResult, error) {
	ch := m.refreshGroup.DoChan(user.UID(), func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), providerCallTimeout)
		defer cancel()
		return user.IDTokenResult(shared, true)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TokenResult), nil
	}
}

// adoptToken сохраняет срок действия нового токена и перевзводит таймер обновления,
// если пользователь сессии не сменился
func (m *SessionManager) adoptToken(user IdentityUser, result *TokenResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != user || m.principal == nil || m.state != StateAuthenticated {
		return
	}
	m.adoptTokenLocked(result)
}

func (m *SessionManager) adoptTokenLocked(result *TokenResult) {
	updated := *m.principal
	updated.TokenExpiry = result.ExpirationTime
	m.principal = &updated
	m.stopRenewalLocked()

	if result.ExpirationTime.Sub(m.clock.Now()) <= m.renewalMargin {
		log.Printf("⚠️ Session: новый токен истекает %s, плановое обновление остановлено", result.ExpirationTime.Format(time.RFC3339))
		return
	}
	log.Printf("🔄 Session: токен обновлен, действует до %s", result.ExpirationTime.Format(time.RFC3339))
	m.scheduleRenewalLocked(result.ExpirationTime)
}

// expireSession - сессию восстановить нельзя: локальный сброс и выход у провайдера,
// выход у провайдера вызывается только тем, кто реально сбросил сессию
func (m *SessionManager) expireSession() {
	if !m.forceLogout("session expired") {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), providerCallTimeout)
	defer cancel()
	if err := m.provider.SignOut(ctx); err != nil {
		log.Printf("⚠️ Session: выход у провайдера после истечения сессии не удался: %v", err)
	}
}

// forceLogout - сброс для Logout и 401: локальное состояние и маркеры сессии
// удаляются всегда. Возвращает true, если переход был
func (m *SessionManager) forceLogout(reason string) bool {
	session, transitioned := m.resetLocal()
	m.clearMarkers()
	m.announceLogout(reason, session, transitioned)
	return transitioned
}

// resetLocal переводит сессию в Unauthenticated, не трогая общее хранилище
func (m *SessionManager) resetLocal() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.stopRenewalLocked()
	transitioned := m.state != StateUnauthenticated
	m.state = StateUnauthenticated
	m.principal = nil
	m.user = nil
	return m.sessionLocked(), transitioned
}

// announceLogout уведомляет слушателей только при реальном переходе
func (m *SessionManager) announceLogout(reason string, session Session, transitioned bool) {
	if transitioned {
		log.Printf("🔐 Session: сессия завершена (%s)", reason)
		m.notify(session)
	}
}

func (m *SessionManager) clearMarkers() {
	for _, key := range models.SessionMarkerKeys {
		if err := m.storage.RemoveItem(key); err != nil {
			log.Printf("⚠️ Session: не удалось удалить ключ %s: %v", key, err)
		}
	}
}

func (m *SessionManager) handleAuthChange(user IdentityUser) {
	if user == nil {
		session, transitioned := m.resetLocal()
		m.announceLogout("провайдер сообщил, что пользователь не вошел", session, transitioned)
		return
	}

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	principal := &models.Principal{
		ID:          user.UID(),
		Email:       user.Email(),
		DisplayName: user.DisplayName(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), providerCallTimeout)
	result, err := user.IDTokenResult(ctx, false)
	cancel()
	if err != nil {
		log.Printf("⚠️ Session: не удалось получить claims пользователя %s, вход без роли: %v", principal.ID, err)
	} else {
		principal.RawClaims = result.Claims
		principal.Role = models.RoleFromClaims(result.Claims)
		principal.TokenExpiry = result.ExpirationTime
	}

	m.mu.Lock()
	if m.epoch != epoch || !m.active {
		m.mu.Unlock()
		log.Printf("⚠️ Session: сессия сброшена во время загрузки claims %s, результат отброшен", principal.ID)
		return
	}
	m.state = StateAuthenticated
	m.principal = principal
	m.user = user
	m.scheduleRenewalLocked(principal.TokenExpiry)
	session := m.sessionLocked()
	m.mu.Unlock()

	m.writeUserMarker(principal)
	log.Printf("✅ Session: вошел %s (role=%q)", principal.Email, principal.Role)
	m.notify(session)
}

func (m *SessionManager) handleStorageEvent(event models.StorageEvent) {
	if event.Key == "" || (event.Key == models.StorageKeyUser && event.IsRemoval()) {
		// Только локальный сброс: ключи к этому моменту мог уже записать новый вход
		session, transitioned := m.resetLocal()
		m.announceLogout("выход в другом контексте", session, transitioned)
	}
}

func (m *SessionManager) writeUserMarker(p *models.Principal) {
	data, err := json.Marshal(models.StoredUser{UID: p.ID, Email: p.Email, Role: p.Role})
	if err != nil {
		return
	}
	if err := m.storage.SetItem(models.StorageKeyUser, string(data)); err != nil {
		log.Printf("⚠️ Session: не удалось сохранить маркер пользователя: %v", err)
	}
}

// scheduleRenewalLocked заменяет таймер обновления текущей сессии
// Истекающий в пределах запаса токен обновляется сразу
func (m *SessionManager) scheduleRenewalLocked(expiry time.Time) {
	m.stopRenewalLocked()
	if expiry.IsZero() || !m.active || m.state != StateAuthenticated {
		return
	}

	gen := m.renewalGen
	until := expiry.Sub(m.clock.Now())
	if until <= m.renewalMargin {
		go m.renew(gen)
		return
	}
	m.renewalTimer = m.clock.AfterFunc(until-m.renewalMargin, func() { m.renew(gen) })
}

func (m *SessionManager) stopRenewalLocked() {
	m.renewalGen++
	if m.renewalTimer != nil {
		m.renewalTimer.Stop()
		m.renewalTimer = nil
	}
}

func (m *SessionManager) renew(gen uint64) {
	m.mu.Lock()
	if gen != m.renewalGen || m.state != StateAuthenticated || m.user == nil {
		m.mu.Unlock()
		return
	}
	user := m.user
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), providerCallTimeout)
	defer cancel()

	result, err := m.refresh(ctx, user)
	if err != nil {
		log.Printf("⚠️ Session: плановое обновление токена не удалось: %v", err)
		m.mu.Lock()
		if gen == m.renewalGen {
			m.renewalTimer = nil
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.renewalGen || m.principal == nil {
		return
	}
	m.adoptTokenLocked(result)
}

// renewalArmed - есть ли взведенный таймер (для тестов и диагностики)
func (m *SessionManager) renewalArmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renewalTimer != nil
}

func (m *SessionManager) sessionLocked() Session {
	s := Session{
		IsAuthenticated: m.state == StateAuthenticated,
		Loading:         m.state == StateInitializing,
	}
	if m.principal != nil {
		p := *m.principal
		s.Principal = &p
	}
	return s
}

func (m *SessionManager) notify(session Session) {
	m.mu.Lock()
	listeners := make([]func(Session), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(session)
	}
}
