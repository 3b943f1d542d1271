package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want OrderStatus
	}{
		{"", OrderStatusPending},
		{"PENDING", OrderStatusPending},
		{"pending", OrderStatusPending},
		{"RECEIVED", OrderStatusReceived},
		{"PREPARING", OrderStatusPreparing},
		{"Preparing", OrderStatusPreparing},
		{"cooking", OrderStatusPreparing},
		{"COOKING", OrderStatusPreparing},
		{"READY", OrderStatusReady},
		{"COMPLETED", OrderStatusCompleted},
		{"DELIVERED", OrderStatusCompleted},
		{"delivered", OrderStatusCompleted},
		{"CANCELLED", OrderStatusCancelled},
		{"cancelled", OrderStatusCancelled},
		{"teleported", OrderStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
		})
	}
}

func TestNormalizeStatus_Idempotent(t *testing.T) {
	for _, raw := range []string{"", "PENDING", "DELIVERED", "cooking", "unknown", "Ready"} {
		once := NormalizeStatus(raw)
		assert.Equal(t, once, NormalizeStatus(string(once)), raw)
	}
}

func TestCancellationAndFinality(t *testing.T) {
	cancellable := 0
	for _, s := range AllOrderStatuses {
		if IsCustomerCancellable(string(s)) {
			cancellable++
		}
		// Финальный статус никогда не отменяется клиентом
		if IsFinalStatus(string(s)) {
			assert.False(t, IsCustomerCancellable(string(s)), s)
		}
	}
	assert.Equal(t, 2, cancellable)

	assert.True(t, IsCustomerCancellable("PENDING"))
	assert.True(t, IsCustomerCancellable("received"))
	assert.False(t, IsCustomerCancellable("PREPARING"))
	assert.False(t, IsCustomerCancellable("ready"))

	assert.True(t, IsFinalStatus("DELIVERED"))
	assert.True(t, IsFinalStatus("CANCELLED"))
	assert.False(t, IsFinalStatus("ready"))
	assert.False(t, IsFinalStatus(""))
}

func TestCancelRestrictionFor(t *testing.T) {
	assert.Equal(t, MessageNone, CancelRestrictionFor("pending"))
	assert.Equal(t, MessageNone, CancelRestrictionFor("RECEIVED"))
	assert.Equal(t, MessageCannotCancelKitchen, CancelRestrictionFor("preparing"))
	assert.Equal(t, MessageCannotCancelReady, CancelRestrictionFor("READY"))
	assert.Equal(t, MessageCannotCancelDone, CancelRestrictionFor("completed"))
	assert.Equal(t, MessageNone, CancelRestrictionFor("cancelled"))
}

func TestStatusViewFor(t *testing.T) {
	t.Run("pending shows cancel button", func(t *testing.T) {
		view := StatusViewFor("PENDING")
		assert.Equal(t, OrderStatusPending, view.Status)
		assert.True(t, view.CanCancel)
		assert.Nil(t, view.RestrictionMessage)
		assert.False(t, view.IsTerminal)
		assert.Equal(t, "orderStatus.pending", view.TranslationKey)
	})

	t.Run("preparing shows kitchen restriction", func(t *testing.T) {
		view := StatusViewFor("preparing")
		assert.False(t, view.CanCancel)
		require.NotNil(t, view.RestrictionMessage)
		assert.Equal(t, MessageCannotCancelKitchen, *view.RestrictionMessage)
		assert.False(t, view.IsTerminal)
	})

	t.Run("cancelled shows neither button nor restriction", func(t *testing.T) {
		view := StatusViewFor("cancelled")
		assert.False(t, view.CanCancel)
		assert.Nil(t, view.RestrictionMessage)
		assert.True(t, view.IsTerminal)
	})

	t.Run("legacy delivered is completed", func(t *testing.T) {
		view := StatusViewFor("DELIVERED")
		assert.Equal(t, OrderStatusCompleted, view.Status)
		require.NotNil(t, view.RestrictionMessage)
		assert.Equal(t, MessageCannotCancelDone, *view.RestrictionMessage)
		assert.True(t, view.IsTerminal)
	})
}

func TestEstimatedWait(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		elapsed time.Duration
		want    WaitEstimate
	}{
		{"pending fresh", "PENDING", 0, WaitEstimate{Kind: WaitMinutes, Minutes: 15}},
		{"received uses default estimate", "received", 5 * time.Minute, WaitEstimate{Kind: WaitMinutes, Minutes: 12}},
		{"received overdue still default", "RECEIVED", 30 * time.Minute, WaitEstimate{Kind: WaitMinutes, Minutes: 12}},
		{"empty status uses pending budget", "", 3 * time.Minute, WaitEstimate{Kind: WaitMinutes, Minutes: 12}},
		{"preparing after 4m", "PREPARING", 4 * time.Minute, WaitEstimate{Kind: WaitMinutes, Minutes: 6}},
		{"preparing overdue", "preparing", 20 * time.Minute, WaitEstimate{Kind: WaitSoon}},
		{"pending exactly on budget", "pending", 15 * time.Minute, WaitEstimate{Kind: WaitSoon}},
		{"ready", "READY", 0, WaitEstimate{Kind: WaitReady}},
		{"delivered", "DELIVERED", 0, WaitEstimate{Kind: WaitDelivered}},
		{"cancelled", "cancelled", 0, WaitEstimate{Kind: WaitCancelled}},
		{"unknown status", "teleported", 30 * time.Minute, WaitEstimate{Kind: WaitMinutes, Minutes: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimatedWait(tt.raw, created, created.Add(tt.elapsed)))
		})
	}
}

func TestCanSubmitSurvey(t *testing.T) {
	assert.True(t, CanSubmitSurvey("PREPARING", false))
	assert.True(t, CanSubmitSurvey("ready", false))
	assert.False(t, CanSubmitSurvey("ready", true))
	assert.False(t, CanSubmitSurvey("pending", false))
	assert.False(t, CanSubmitSurvey("COMPLETED", false))
	assert.False(t, CanSubmitSurvey("cancelled", false))
}
