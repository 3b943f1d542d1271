package database

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliciouskitchen/frontend/internal/models"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []models.StorageEvent
}

func (r *eventRecorder) record(e models.StorageEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) snapshot() []models.StorageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StorageEvent(nil), r.events...)
}

func TestMemoryOrigin_SharesItemsBetweenContexts(t *testing.T) {
	origin := NewMemoryOrigin()
	tabA := origin.NewContext()
	tabB := origin.NewContext()
	defer tabA.Close()
	defer tabB.Close()

	require.NoError(t, tabA.SetItem(models.StorageKeyUser, `{"uid":"u1"}`))

	value, ok := tabB.GetItem(models.StorageKeyUser)
	assert.True(t, ok)
	assert.Equal(t, `{"uid":"u1"}`, value)

	require.NoError(t, tabB.RemoveItem(models.StorageKeyUser))
	_, ok = tabA.GetItem(models.StorageKeyUser)
	assert.False(t, ok)
}

func TestMemoryOrigin_EventsReachOnlyOtherContexts(t *testing.T) {
	origin := NewMemoryOrigin()
	tabA := origin.NewContext()
	tabB := origin.NewContext()
	defer tabA.Close()
	defer tabB.Close()

	var seenA, seenB eventRecorder
	tabA.OnStorage(seenA.record)
	tabB.OnStorage(seenB.record)

	require.NoError(t, tabA.SetItem(models.StorageKeyTheme, "dark"))
	require.NoError(t, tabA.RemoveItem(models.StorageKeyTheme))

	assert.Eventually(t, func() bool { return len(seenB.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []models.StorageEvent{
		{Key: models.StorageKeyTheme, NewValue: "dark"},
		{Key: models.StorageKeyTheme},
	}, seenB.snapshot())
	assert.Empty(t, seenA.snapshot())
}

func TestMemoryOrigin_RemovingAbsentKeyIsSilent(t *testing.T) {
	origin := NewMemoryOrigin()
	tabA := origin.NewContext()
	tabB := origin.NewContext()
	defer tabA.Close()
	defer tabB.Close()

	var seen eventRecorder
	tabB.OnStorage(seen.record)

	require.NoError(t, tabA.RemoveItem(models.StorageKeyUser))
	require.NoError(t, tabA.SetItem(models.StorageKeyLanguage, "es"))

	// Событие SetItem доставлено, удаление отсутствующего ключа нет
	assert.Eventually(t, func() bool { return len(seen.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.StorageKeyLanguage, seen.snapshot()[0].Key)
}

func TestMemoryOrigin_ClearAndUnsubscribe(t *testing.T) {
	origin := NewMemoryOrigin()
	tabA := origin.NewContext()
	tabB := origin.NewContext()
	defer tabA.Close()
	defer tabB.Close()

	var seen eventRecorder
	remove := tabB.OnStorage(seen.record)

	require.NoError(t, tabA.SetItem(models.StorageKeyUser, "x"))
	require.NoError(t, tabA.Clear())
	assert.Eventually(t, func() bool { return len(seen.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, seen.snapshot()[1].IsRemoval())
	assert.Empty(t, seen.snapshot()[1].Key)

	_, ok := tabB.GetItem(models.StorageKeyUser)
	assert.False(t, ok)

	remove()
	require.NoError(t, tabA.SetItem(models.StorageKeyTheme, "light"))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, seen.snapshot(), 2)
}

func TestMemoryLocalStorage_CloseIsIdempotent(t *testing.T) {
	origin := NewMemoryOrigin()
	tabA := origin.NewContext()
	tabB := origin.NewContext()
	defer tabA.Close()

	require.NoError(t, tabB.Close())
	require.NoError(t, tabB.Close())

	// Закрытый контекст больше не получает события, запись не блокируется
	require.NoError(t, tabA.SetItem(models.StorageKeyTheme, "dark"))
}
