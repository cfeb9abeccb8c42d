package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SafeCircle/internal/model"
)

func TestClassifyLevel(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		want    model.AlertLevel
	}{
		{"immediately after miss", 0, model.AlertLevelReminder},
		{"just under 24h", 24*time.Hour - time.Second, model.AlertLevelReminder},
		{"exactly 24h", 24 * time.Hour, model.AlertLevelSoftAlert},
		{"just under 36h", 36*time.Hour - time.Second, model.AlertLevelSoftAlert},
		{"exactly 36h", 36 * time.Hour, model.AlertLevelHardAlert},
		{"just under 48h", 48*time.Hour - time.Second, model.AlertLevelHardAlert},
		{"exactly 48h", 48 * time.Hour, model.AlertLevelEscalation},
		{"days later", 96 * time.Hour, model.AlertLevelEscalation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyLevel(tc.elapsed))
		})
	}
}

func TestTimes(t *testing.T) {
	missed := time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)
	tl := Times(missed)

	require.True(t, tl.Reminder.Equal(missed.Add(1*time.Hour)))
	require.True(t, tl.SoftAlert.Equal(missed.Add(24*time.Hour)))
	require.True(t, tl.HardAlert.Equal(missed.Add(36*time.Hour)))
	require.True(t, tl.Escalation.Equal(missed.Add(48*time.Hour)))
}

func TestPolicyFor(t *testing.T) {
	require.Equal(t, ChannelPolicy{}, PolicyFor(model.AlertLevelReminder))
	require.Equal(t, ChannelPolicy{SMS: true}, PolicyFor(model.AlertLevelSoftAlert))
	require.Equal(t, ChannelPolicy{SMS: true, Voice: true}, PolicyFor(model.AlertLevelHardAlert))
	require.Equal(t, ChannelPolicy{SMS: true, Voice: true, DirectEmail: true}, PolicyFor(model.AlertLevelEscalation))
}

func TestRecipients(t *testing.T) {
	links := []*model.CircleLink{
		{SupporterID: 10, AlertPriority: 1},
		{SupporterID: 11, AlertPriority: 2},
		{SupporterID: 12, AlertPriority: 3, IsEmergencyContact: true},
	}

	require.Empty(t, Recipients(model.AlertLevelReminder, links))

	soft := Recipients(model.AlertLevelSoftAlert, links)
	require.Len(t, soft, 1)
	require.Equal(t, int64(10), soft[0].SupporterID)

	hard := Recipients(model.AlertLevelHardAlert, links)
	require.Len(t, hard, 2)
	for _, l := range hard {
		require.False(t, l.IsEmergencyContact)
	}

	esc := Recipients(model.AlertLevelEscalation, links)
	require.Len(t, esc, 3)
}

func TestRecipientsEmptyCircle(t *testing.T) {
	require.Empty(t, Recipients(model.AlertLevelEscalation, nil))
}
