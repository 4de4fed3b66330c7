package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskCountsValidate(t *testing.T) {
	tests := []struct {
		name    string
		counts  TaskCounts
		wantErr bool
	}{
		{"balanced", TaskCounts{Total: 10, Success: 4, Failure: 3, Empty: 2, Deduplicated: 1}, false},
		{"all zero", TaskCounts{}, false},
		{"sum too small", TaskCounts{Total: 10, Success: 4}, true},
		{"sum too large", TaskCounts{Total: 1, Success: 1, Failure: 1}, true},
		{"negative outcome", TaskCounts{Total: 0, Success: 1, Failure: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.counts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
