package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_WithDefaults(t *testing.T) {
	// Given: empty options
	opts := Options{}

	// When: applying defaults
	result := opts.WithDefaults()

	// Then: defaults are applied
	assert.Equal(t, 5*time.Second, result.PollInterval)
	assert.Equal(t, 1000, result.EventBufferSize)
	assert.NotNil(t, result.Trackable)
}

func TestOptions_WithDefaults_PreservesValues(t *testing.T) {
	opts := Options{PollInterval: time.Second, EventBufferSize: 5}

	result := opts.WithDefaults()

	assert.Equal(t, time.Second, result.PollInterval)
	assert.Equal(t, 5, result.EventBufferSize)
}

func TestOptions_Tracks(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		path string
		want bool
	}{
		{"note.md", true},
		{"daily/2024/Jan.MD", true},
		{"image.png", false},
		{".obsidian/workspace.md", false},
		{".git/HEAD", false},
		{".qmdsync/cache.md", false},
		{"sub/.trash/old.md", false},
		{"node_modules/pkg/readme.md", false},
		{"", false},
		{".", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, opts.tracks(tt.path))
		})
	}
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("a.md"))
	assert.False(t, IsMarkdown("a.mdx"))
	assert.False(t, IsMarkdown("md"))
}
