package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	cfgFlags := []string{"-c", "--config"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate value", []string{"-c", "dialer.yaml", "-server", "localhost:50051"}, cfgFlags, []string{"-c", "dialer.yaml"}},
		{"equals form", []string{"--config=dialer.json", "-log-level", "debug"}, cfgFlags, []string{"--config=dialer.json"}},
		{"order kept", []string{"--config=a.yaml", "-c", "b.yaml", "-number", "+15550000001"}, cfgFlags, []string{"--config=a.yaml", "-c", "b.yaml"}},
		{"nothing allowed", []string{"-number", "+15550000001", "positional"}, cfgFlags, []string{}},
		{"dangling flag", []string{"-c"}, cfgFlags, []string{"-c"}},
		{"dash value not consumed", []string{"-c", "-server"}, cfgFlags, []string{"-c"}},
		{"several allowed flags", []string{"-server", "localhost:50051", "-c", "dialer.yaml", "-x", "1"}, []string{"-c", "-server"}, []string{"-server", "localhost:50051", "-c", "dialer.yaml"}},
		{"empty", nil, cfgFlags, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFileFlagFrom(t *testing.T) {
	assert.Equal(t, "/etc/dialer.yaml", ConfigFileFlagFrom([]string{"-c", "/etc/dialer.yaml"}))
	assert.Equal(t, "/etc/dialer.json", ConfigFileFlagFrom([]string{"-server", "x", "--config=/etc/dialer.json"}))
	assert.Equal(t, "b.yml", ConfigFileFlagFrom([]string{"-c", "a.yml", "-config", "b.yml"}), "last one wins")
	assert.Empty(t, ConfigFileFlagFrom([]string{"-server", "x"}))
	assert.Empty(t, ConfigFileFlagFrom([]string{"-c"}))
}

func TestConfigFileFlag_ReadsOSArgs(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"dialer", "-config", "/tmp/dialer.yaml"}
	assert.Equal(t, "/tmp/dialer.yaml", ConfigFileFlag())
}
