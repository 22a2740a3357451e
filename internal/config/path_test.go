package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("PALMPAY_TEST_DIR", "/var/lib/palmpay")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty", path: "", want: ""},
		{name: "absolute untouched", path: "/tmp/palmpay.db", want: "/tmp/palmpay.db"},
		{name: "bare tilde", path: "~", want: home},
		{name: "tilde prefix", path: "~/.local/share/palmpay/palmpay.db", want: filepath.Join(home, ".local/share/palmpay/palmpay.db")},
		{name: "env var", path: "$PALMPAY_TEST_DIR/palmpay.db", want: "/var/lib/palmpay/palmpay.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.path))
		})
	}
}
