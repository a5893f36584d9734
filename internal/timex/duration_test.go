package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type holder struct {
	D Duration `json:"d" yaml:"d"`
}

func TestDuration_JSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{`{"d":"1500ms"}`, 1500 * time.Millisecond, false},
		{`{"d":3000000000}`, 3 * time.Second, false},
		{`{"d":null}`, 0, false},
		{`{"d":"soon"}`, 0, true},
		{`{"d":true}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var h holder
			err := json.Unmarshal([]byte(tt.in), &h)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.D.Duration)
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	var h holder
	require.NoError(t, yaml.Unmarshal([]byte("d: 2s\n"), &h))
	assert.Equal(t, 2*time.Second, h.D.Duration)

	require.NoError(t, yaml.Unmarshal([]byte("d: 1000\n"), &h))
	assert.Equal(t, time.Microsecond, h.D.Duration)

	require.Error(t, yaml.Unmarshal([]byte("d: later\n"), &h))
}

func TestDuration_RoundTrip(t *testing.T) {
	b, err := json.Marshal(holder{D: Duration{90 * time.Second}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"1m30s"}`, string(b))

	out, err := yaml.Marshal(holder{D: Duration{time.Second}})
	require.NoError(t, err)
	assert.Equal(t, "d: 1s\n", string(out))
}
