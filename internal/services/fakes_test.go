package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// advancingClock - часть fake clock, которая нужна тестам
type advancingClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

func newTestClock() advancingClock {
	return clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

// fakeProvider вызывает обработчик синхронно из emit
type fakeProvider struct {
	mu           sync.Mutex
	handler      func(IdentityUser)
	current      IdentityUser
	signOuts     int
	signOutErr   error
	unsubscribed int
}

func (p *fakeProvider) SubscribeAuthChanges(handler func(IdentityUser)) func() {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.handler = nil
		p.unsubscribed++
		p.mu.Unlock()
	}
}

func (p *fakeProvider) emit(user IdentityUser) {
	p.mu.Lock()
	p.current = user
	handler := p.handler
	p.mu.Unlock()
	if handler != nil {
		handler(user)
	}
}

func (p *fakeProvider) CurrentUser() IdentityUser {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	p.current = nil
	return p.signOutErr
}

func (p *fakeProvider) signOutCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts
}

// fakeUser выдает токены "token-0", "token-1"... по числу принудительных обновлений
type fakeUser struct {
	uid   string
	email string

	mu         sync.Mutex
	refreshes  int
	claims     map[string]any
	expiry     time.Time
	claimsErr  error
	refreshErr error

	// nextExpiry задает срок действия токена после обновления
	nextExpiry func() time.Time

	// claimsGate блокирует IDTokenResult(force=false), пока канал не закрыт
	claimsGate    chan struct{}
	claimsEntered chan struct{}

	// refreshGate держит IDTokenResult(force=true) до закрытия канала или отмены ctx
	refreshGate    chan struct{}
	refreshEntered chan struct{}
}

func newFakeUser(role string, expiry time.Time) *fakeUser {
	return &fakeUser{
		uid:    "uid-1",
		email:  "chef@deliciouskitchen.test",
		claims: map[string]any{"role": role},
		expiry: expiry,
	}
}

func (u *fakeUser) UID() string         { return u.uid }
func (u *fakeUser) Email() string       { return u.email }
func (u *fakeUser) DisplayName() string { return "Chef" }

func (u *fakeUser) IDToken(ctx context.Context, force bool) (string, error) {
	result, err := u.IDTokenResult(ctx, force)
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

func (u *fakeUser) IDTokenResult(ctx context.Context, force bool) (*TokenResult, error) {
	if !force {
		u.mu.Lock()
		gate, entered := u.claimsGate, u.claimsEntered
		u.mu.Unlock()
		if gate != nil {
			if entered != nil {
				entered <- struct{}{}
			}
			<-gate
		}
	} else {
		u.mu.Lock()
		gate, entered := u.refreshGate, u.refreshEntered
		u.mu.Unlock()
		if gate != nil {
			if entered != nil {
				entered <- struct{}{}
			}
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if force {
		if u.refreshErr != nil {
			return nil, u.refreshErr
		}
		u.refreshes++
		if u.nextExpiry != nil {
			u.expiry = u.nextExpiry()
		}
	} else if u.claimsErr != nil {
		return nil, u.claimsErr
	}
	return &TokenResult{
		Token:          fmt.Sprintf("token-%d", u.refreshes),
		Claims:         u.claims,
		ExpirationTime: u.expiry,
	}, nil
}

func (u *fakeUser) refreshCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.refreshes
}

var errNetwork = errors.New("network unreachable")
