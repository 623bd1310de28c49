package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simagang/simagang/core"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{from: StatusActive, to: StatusActive, ok: true},
		{from: StatusActive, to: StatusCompleted, ok: true},
		{from: StatusActive, to: StatusCancelled, ok: true},
		{from: StatusActive, to: Status("paused")},
		{from: StatusCompleted, to: StatusActive},
		{from: StatusCompleted, to: StatusCompleted},
		{from: StatusCompleted, to: StatusCancelled},
		{from: StatusCancelled, to: StatusActive},
		{from: StatusCancelled, to: StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := Transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, core.IsTransition(err), "got %v", err)
			}
		})
	}
}

func TestCheckDates(t *testing.T) {
	start := core.NewDate(2024, 7, 1)
	assert.NoError(t, checkDates(start, core.NewDate(2024, 9, 30)))
	assert.True(t, core.IsValidation(checkDates(start, start)))
	assert.True(t, core.IsValidation(checkDates(start, core.NewDate(2024, 6, 30))))
}
