package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value kept",
			args:    []string{"-db", "spend.db", "-a", "localhost:50051"},
			allowed: []string{"-db"},
			want:    []string{"-db", "spend.db"},
		},
		{
			name:    "equals form kept whole",
			args:    []string{"-settle=2s", "-x", "1"},
			allowed: []string{"-settle"},
			want:    []string{"-settle=2s"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next flag is not a value",
			args:    []string{"-c", "-i", "5"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "repeated flag preserved in order",
			args:    []string{"-a", "one:1", "-i", "3", "-a", "two:2"},
			allowed: []string{"-a", "-i"},
			want:    []string{"-a", "one:1", "-i", "3", "-a", "two:2"},
		},
		{
			name:    "empty args",
			args:    nil,
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/spendsync.json", ConfigPath([]string{"-c", "/etc/spendsync.json"}))
	assert.Equal(t, "long.json", ConfigPath([]string{"-a", "x:1", "-config", "long.json"}))
	assert.Equal(t, "eq.json", ConfigPath([]string{"-config=eq.json"}))
	assert.Equal(t, "2.json", ConfigPath([]string{"-c", "1.json", "-config", "2.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
}

func TestJsonConfigFlags(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"spendsync", "-c", "client.json"}
	assert.Equal(t, "client.json", JsonConfigFlags())

	os.Args = []string{"spendsync"}
	assert.Empty(t, JsonConfigFlags())
}
