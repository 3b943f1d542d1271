package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"deliciouskitchen/frontend/internal/models"
)

const (
	DefaultFirebaseAuthURL  = "https://identitytoolkit.googleapis.com"
	DefaultFirebaseTokenURL = "https://securetoken.googleapis.com"

	// Кешированный токен считается истекшим за 30 секунд до exp
	tokenExpirySkew = 30 * time.Second
)

// FirebaseConfig - параметры REST API Firebase Auth
type FirebaseConfig struct {
	APIKey     string
	AuthURL    string // identity toolkit (вход по паролю)
	TokenURL   string // secure token service (обновление токена)
	HTTPClient *http.Client
	Clock      clockwork.Clock
}

// FirebaseClient - провайдер идентификации поверх REST API Firebase Auth
// Токены хранятся в LocalStorage (authToken, refreshToken), поэтому
// все контексты одного origin видят один и тот же вход
type FirebaseClient struct {
	apiKey     string
	authURL    string
	tokenURL   string
	httpClient *http.Client
	clock      clockwork.Clock
	storage    LocalStorage

	mu            sync.Mutex
	current       *firebaseUser
	restored      bool
	subscribers   map[int]*authSubscriber
	nextSub       int
	removeStorage func()
}

// NewFirebaseClient создает клиента и начинает следить за ключами токенов в хранилище
func NewFirebaseClient(cfg FirebaseConfig, storage LocalStorage) *FirebaseClient {
	c := &FirebaseClient{
		apiKey:      cfg.APIKey,
		authURL:     strings.TrimRight(cfg.AuthURL, "/"),
		tokenURL:    strings.TrimRight(cfg.TokenURL, "/"),
		httpClient:  cfg.HTTPClient,
		clock:       cfg.Clock,
		storage:     storage,
		subscribers: make(map[int]*authSubscriber),
	}
	if c.authURL == "" {
		c.authURL = DefaultFirebaseAuthURL
	}
	if c.tokenURL == "" {
		c.tokenURL = DefaultFirebaseTokenURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	c.removeStorage = storage.OnStorage(c.handleStorageEvent)
	return c
}

// Close прекращает следить за хранилищем и останавливает доставку уведомлений
func (c *FirebaseClient) Close() {
	c.removeStorage()

	c.mu.Lock()
	subs := c.subscribers
	c.subscribers = make(map[int]*authSubscriber)
	c.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

// Restore восстанавливает вход по сохраненному refresh token
// Подписчики получают первое уведомление только после Restore
func (c *FirebaseClient) Restore(ctx context.Context) error {
	refreshToken, ok := c.storage.GetItem(models.StorageKeyRefreshToken)
	if !ok || refreshToken == "" {
		log.Println("🔐 Firebase: сохраненной сессии нет")
		c.setCurrent(nil, true)
		return nil
	}

	user, err := c.userFromRefreshToken(ctx, refreshToken)
	if err != nil {
		var refreshErr *TokenRefreshError
		if errors.As(err, &refreshErr) && refreshErr.Revoked {
			c.removeTokens()
		}
		log.Printf("⚠️ Firebase: не удалось восстановить сессию: %v", err)
		c.setCurrent(nil, true)
		return err
	}

	c.persistTokens(user)
	log.Printf("✅ Firebase: сессия восстановлена для %s", user.email)
	c.setCurrent(user, true)
	return nil
}

// SignInWithPassword выполняет вход по email и паролю
func (c *FirebaseClient) SignInWithPassword(ctx context.Context, email, password string) (IdentityUser, error) {
	payload := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp struct {
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	endpoint := fmt.Sprintf("%s/v1/accounts:signInWithPassword?key=%s", c.authURL, url.QueryEscape(c.apiKey))
	if err := c.postJSON(ctx, endpoint, payload, &resp); err != nil {
		return nil, err
	}

	user := &firebaseUser{
		client:       c,
		uid:          resp.LocalID,
		email:        resp.Email,
		displayName:  resp.DisplayName,
		refreshToken: resp.RefreshToken,
	}
	if err := user.applyIDToken(resp.IDToken, resp.ExpiresIn); err != nil {
		return nil, &AuthError{Code: "INVALID_ID_TOKEN", Kind: AuthErrGeneric, Err: err}
	}

	c.persistTokens(user)
	log.Printf("🔐 Firebase: вход выполнен %s", user.email)
	c.setCurrent(user, true)
	return user, nil
}

// SignOut завершает вход локально и удаляет токены из хранилища
func (c *FirebaseClient) SignOut(ctx context.Context) error {
	c.removeTokens()
	c.setCurrent(nil, true)
	return nil
}

// CurrentUser возвращает вошедшего пользователя или nil
func (c *FirebaseClient) CurrentUser() IdentityUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return asIdentity(c.current)
}

// SubscribeAuthChanges регистрирует обработчик изменений входа
// У каждого подписчика своя горутина доставки, вызовы идут строго по одному
func (c *FirebaseClient) SubscribeAuthChanges(handler func(IdentityUser)) func() {
	sub := newAuthSubscriber(handler)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = sub
	if c.restored {
		sub.push(asIdentity(c.current))
	}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
		sub.stop()
	}
}

func (c *FirebaseClient) setCurrent(user *firebaseUser, markRestored bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = user
	if markRestored {
		c.restored = true
	}
	if !c.restored {
		return
	}
	for _, sub := range c.subscribers {
		sub.push(asIdentity(user))
	}
}

// dropUser выходит локально, если user все еще текущий
// Используется, когда refresh token оказался отозван
func (c *FirebaseClient) dropUser(user *firebaseUser) {
	c.mu.Lock()
	isCurrent := c.current == user
	c.mu.Unlock()
	if !isCurrent {
		return
	}
	log.Printf("🔐 Firebase: токен пользователя %s отозван, выход", user.email)
	c.removeTokens()
	c.setCurrent(nil, false)
}

// handleStorageEvent - другой контекст изменил ключи токенов
func (c *FirebaseClient) handleStorageEvent(event models.StorageEvent) {
	if event.Key != "" && event.Key != models.StorageKeyRefreshToken {
		return
	}

	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if event.IsRemoval() {
		if current != nil {
			log.Println("🔐 Firebase: выход выполнен в другом контексте")
			c.setCurrent(nil, false)
		}
		return
	}

	if current != nil && current.currentRefreshToken() == event.NewValue {
		return
	}
	// Вход в другом контексте: подхватываем его refresh token
	go c.adopt(event.NewValue)
}

func (c *FirebaseClient) adopt(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := c.userFromRefreshToken(ctx, refreshToken)
	if err != nil {
		log.Printf("⚠️ Firebase: не удалось подхватить вход из другого контекста: %v", err)
		return
	}

	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current != nil && current.uid == user.uid {
		current.replaceTokens(user)
		return
	}
	log.Printf("🔐 Firebase: вход выполнен в другом контексте (%s)", user.email)
	c.setCurrent(user, true)
}

func (c *FirebaseClient) userFromRefreshToken(ctx context.Context, refreshToken string) (*firebaseUser, error) {
	tokens, err := c.exchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user := &firebaseUser{client: c, uid: tokens.UserID, refreshToken: tokens.RefreshToken}
	if err := user.applyIDToken(tokens.IDToken, tokens.ExpiresIn); err != nil {
		return nil, &TokenRefreshError{Err: err}
	}
	if email, ok := user.claims["email"].(string); ok {
		user.email = email
	}
	if name, ok := user.claims["name"].(string); ok {
		user.displayName = name
	}
	if user.uid == "" {
		user.uid, _ = user.claims["sub"].(string)
	}
	return user, nil
}

type refreshedTokens struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// exchangeRefreshToken обменивает refresh token на новый ID токен
func (c *FirebaseClient) exchangeRefreshToken(ctx context.Context, refreshToken string) (*refreshedTokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	endpoint := fmt.Sprintf("%s/v1/token?key=%s", c.tokenURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenRefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TokenRefreshError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TokenRefreshError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		authErr := parseAuthError(resp.StatusCode, body)
		// TOKEN_EXPIRED, USER_DISABLED, INVALID_REFRESH_TOKEN и т.п. - вход больше не действует
		revoked := resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden
		return nil, &TokenRefreshError{Revoked: revoked, Err: authErr}
	}

	var tokens refreshedTokens
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, &TokenRefreshError{Err: err}
	}
	return &tokens, nil
}

func (c *FirebaseClient) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Code: "NETWORK_REQUEST_FAILED", Kind: AuthErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{Code: "NETWORK_REQUEST_FAILED", Kind: AuthErrNetwork, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return parseAuthError(resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

// parseAuthError разбирает тело ошибки {"error": {"code": 400, "message": "INVALID_PASSWORD"}}
func parseAuthError(status int, body []byte) *AuthError {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return &AuthError{Code: strconv.Itoa(status), Kind: AuthErrGeneric, Err: fmt.Errorf("status %d", status)}
	}
	return newAuthError(envelope.Error.Message)
}

func (c *FirebaseClient) persistTokens(user *firebaseUser) {
	idToken, refreshToken := user.tokens()
	if err := c.storage.SetItem(models.StorageKeyAuthToken, idToken); err != nil {
		log.Printf("⚠️ Firebase: не удалось сохранить authToken: %v", err)
	}
	if err := c.storage.SetItem(models.StorageKeyRefreshToken, refreshToken); err != nil {
		log.Printf("⚠️ Firebase: не удалось сохранить refreshToken: %v", err)
	}
}

func (c *FirebaseClient) removeTokens() {
	for _, key := range []string{models.StorageKeyAuthToken, models.StorageKeyRefreshToken} {
		if err := c.storage.RemoveItem(key); err != nil {
			log.Printf("⚠️ Firebase: не удалось удалить %s: %v", key, err)
		}
	}
}

// asIdentity не дает nil *firebaseUser превратиться в ненулевой интерфейс
func asIdentity(u *firebaseUser) IdentityUser {
	if u == nil {
		return nil
	}
	return u
}

// firebaseUser - вошедший пользователь с кешем токенов
type firebaseUser struct {
	client      *FirebaseClient
	uid         string
	email       string
	displayName string

	mu           sync.Mutex
	idToken      string
	refreshToken string
	claims       map[string]any
	expiry       time.Time
}

func (u *firebaseUser) UID() string         { return u.uid }
func (u *firebaseUser) Email() string       { return u.email }
func (u *firebaseUser) DisplayName() string { return u.displayName }

// IDToken возвращает кешированный токен или обновляет его, если он истекает
func (u *firebaseUser) IDToken(ctx context.Context, force bool) (string, error) {
	result, err := u.IDTokenResult(ctx, force)
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

// IDTokenResult возвращает токен вместе с claims
// Обновления одного пользователя выполняются по очереди
func (u *firebaseUser) IDTokenResult(ctx context.Context, force bool) (*TokenResult, error) {
	u.mu.Lock()
	if !force && u.idToken != "" && u.client.clock.Now().Add(tokenExpirySkew).Before(u.expiry) {
		result := u.resultLocked()
		u.mu.Unlock()
		return result, nil
	}

	tokens, err := u.client.exchangeRefreshToken(ctx, u.refreshToken)
	if err != nil {
		u.mu.Unlock()
		var refreshErr *TokenRefreshError
		if errors.As(err, &refreshErr) && refreshErr.Revoked {
			u.client.dropUser(u)
		}
		return nil, err
	}
	if tokens.RefreshToken != "" {
		u.refreshToken = tokens.RefreshToken
	}
	if err := u.applyIDTokenLocked(tokens.IDToken, tokens.ExpiresIn); err != nil {
		u.mu.Unlock()
		return nil, &TokenRefreshError{Err: err}
	}
	result := u.resultLocked()
	u.mu.Unlock()

	u.client.persistTokens(u)
	return result, nil
}

func (u *firebaseUser) applyIDToken(idToken, expiresIn string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.applyIDTokenLocked(idToken, expiresIn)
}

// applyIDTokenLocked разбирает claims без проверки подписи: ее проверяет бэкенд
func (u *firebaseUser) applyIDTokenLocked(idToken, expiresIn string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return fmt.Errorf("failed to parse ID token: %w", err)
	}

	expiry := time.Time{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiry = exp.Time
	} else if seconds, err := strconv.Atoi(expiresIn); err == nil {
		expiry = u.client.clock.Now().Add(time.Duration(seconds) * time.Second)
	}

	u.idToken = idToken
	u.claims = map[string]any(claims)
	u.expiry = expiry
	return nil
}

func (u *firebaseUser) resultLocked() *TokenResult {
	claims := make(map[string]any, len(u.claims))
	for k, v := range u.claims {
		claims[k] = v
	}
	return &TokenResult{Token: u.idToken, Claims: claims, ExpirationTime: u.expiry}
}

func (u *firebaseUser) tokens() (string, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.idToken, u.refreshToken
}

func (u *firebaseUser) currentRefreshToken() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.refreshToken
}

func (u *firebaseUser) replaceTokens(other *firebaseUser) {
	idToken, refreshToken := other.tokens()
	other.mu.Lock()
	claims, expiry := other.claims, other.expiry
	other.mu.Unlock()

	u.mu.Lock()
	u.idToken = idToken
	u.refreshToken = refreshToken
	u.claims = claims
	u.expiry = expiry
	u.mu.Unlock()
}

// authSubscriber доставляет уведомления одному подписчику по порядку
type authSubscriber struct {
	handler func(IdentityUser)

	mu     sync.Mutex
	queue  []IdentityUser
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newAuthSubscriber(handler func(IdentityUser)) *authSubscriber {
	s := &authSubscriber{
		handler: handler,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *authSubscriber) push(user IdentityUser) {
	s.mu.Lock()
	s.queue = append(s.queue, user)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *authSubscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *authSubscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.handler(next)
		}
	}
}
