package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestoreMode_Valid(t *testing.T) {
	tests := []struct {
		mode  RestoreMode
		valid bool
	}{
		{RestoreModeReplace, true},
		{RestoreModeMerge, true},
		{"full", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.mode.Valid())
		})
	}
}

func TestMergeStrategy_Valid(t *testing.T) {
	tests := []struct {
		strategy MergeStrategy
		valid    bool
	}{
		{MergeKeepLocal, true},
		{MergeKeepBackup, true},
		{"", true},
		{"newest", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.strategy.Valid())
		})
	}
}
