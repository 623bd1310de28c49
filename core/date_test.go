package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2024-07-01", want: NewDate(2024, time.July, 1)},
		{in: " 2024-07-01 ", want: NewDate(2024, time.July, 1)},
		{in: "2024-07-01T23:30:00Z", want: NewDate(2024, time.July, 1)},
		{in: "2024-07-01 10:00:00", want: NewDate(2024, time.July, 1)},
		{in: "", want: Date{}},
		{in: "01/07/2024", wantErr: true},
		{in: "2024-13-01", wantErr: true},
		{in: "2025-01-01garbage", wantErr: true},
		{in: "2025-01-01T10:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %v", got)
		})
	}
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		Start Date `json:"start"`
		End   Date `json:"end"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-07-01","end":null}`), &v))
	assert.Equal(t, "2024-07-01", v.Start.String())
	assert.True(t, v.End.IsZero())

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-07-01","end":null}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"start":"tomorrow"}`), &v))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-07-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-08-17")))
	assert.Equal(t, "2024-08-17", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	val, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, val)

	assert.Error(t, d.Scan(42))
}
