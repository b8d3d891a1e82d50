package autosync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"off", ModeOff},
		{"", ModeOff},
		{"on-change", ModeOnChange},
		{"on-save", ModeOnChange},
		{"ON-STARTUP", ModeOnStartup},
		{" scheduled ", ModeScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("hourly")
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{VaultPath: "/home/me/Notes/"}.withDefaults()

	assert.Equal(t, ModeOff, cfg.Mode)
	assert.Equal(t, "Notes", cfg.Collection)
	assert.Equal(t, DefaultConfig().FullTimeout, cfg.FullTimeout)
	assert.True(t, cfg.Trackable("a/b.MD"))
	assert.False(t, cfg.Trackable("a/b.canvas"))
}

func TestPendingSet(t *testing.T) {
	p := newPendingSet()
	p.add("a.md")
	p.add("a.md")
	p.markDeleted()
	assert.Equal(t, 2, p.count())

	taken := p.take()
	assert.True(t, p.empty())
	assert.Equal(t, 2, taken.count())

	p.add("b.md")
	p.merge(taken)
	assert.Equal(t, 3, p.count())
}
