package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatsPending(t *testing.T) {
	cases := []struct {
		name  string
		stats CampaignStats
		want  int
	}{
		{"untouched", CampaignStats{Total: 100}, 100},
		{"partial", CampaignStats{Total: 100, Sent: 40, Failed: 10}, 50},
		{"complete", CampaignStats{Total: 100, Sent: 90, Failed: 10}, 0},
		{"overcounted floors at zero", CampaignStats{Total: 100, Sent: 95, Failed: 10}, 0},
		{"empty", CampaignStats{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.stats.Pending())
		})
	}
}

func TestCampaignStatsProgressPercent(t *testing.T) {
	assert.Equal(t, 0, CampaignStats{}.ProgressPercent())
	assert.Equal(t, 0, CampaignStats{Total: 0, Sent: 10}.ProgressPercent())
	assert.Equal(t, 40, CampaignStats{Total: 100, Sent: 40}.ProgressPercent())
	assert.Equal(t, 33, CampaignStats{Total: 3, Sent: 1}.ProgressPercent())
	assert.Equal(t, 67, CampaignStats{Total: 3, Sent: 2}.ProgressPercent())
	assert.Equal(t, 100, CampaignStats{Total: 3, Sent: 3}.ProgressPercent())
}

func TestCampaignStatusTransitions(t *testing.T) {
	sending := Campaign{Status: CampaignStatusSending}
	assert.True(t, sending.CanTransitionTo(CampaignStatusPaused))
	assert.True(t, sending.CanTransitionTo(CampaignStatusCompleted))
	assert.False(t, sending.CanTransitionTo(CampaignStatusDraft))

	paused := Campaign{Status: CampaignStatusPaused}
	assert.True(t, paused.CanTransitionTo(CampaignStatusSending))
	assert.False(t, paused.CanTransitionTo(CampaignStatusScheduled))

	completed := Campaign{Status: CampaignStatusCompleted}
	assert.False(t, completed.CanTransitionTo(CampaignStatusSending))
}

func TestCampaignStatusValid(t *testing.T) {
	for _, s := range []CampaignStatus{
		CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusSending,
		CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusFailed,
	} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, CampaignStatus("cancelled").Valid())
}

func TestPauseReasonValid(t *testing.T) {
	for _, r := range []PauseReason{
		PauseReasonManual, PauseReasonDisconnected, PauseReasonLowBattery, PauseReasonError,
	} {
		assert.True(t, r.Valid(), "reason %s", r)
	}
	assert.False(t, PauseReason("other").Valid())
}

func TestCampaignIsDeletable(t *testing.T) {
	assert.False(t, (&Campaign{Status: CampaignStatusSending}).IsDeletable())
	assert.True(t, (&Campaign{Status: CampaignStatusDraft}).IsDeletable())
	assert.True(t, (&Campaign{Status: CampaignStatusPaused}).IsDeletable())
}
