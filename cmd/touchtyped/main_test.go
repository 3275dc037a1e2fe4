package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/goggybox/touchtypEd/internal/config"
	"github.com/goggybox/touchtypEd/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCmd_PrintsEffectiveConfig(t *testing.T) {
	t.Setenv(config.EnvAddr, "127.0.0.1:9191")

	out, err := execute(t, "config")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "127.0.0.1:9191", cfg.Server.Addr)
	assert.Len(t, cfg.Classes, 2)
	assert.Equal(t, config.Default().Camera, cfg.Camera)
}

func TestProfilesCmd_ListAndUse(t *testing.T) {
	db := filepath.Join(t.TempDir(), "profiles.db")
	t.Setenv(config.EnvDB, db)

	st, err := store.New(db)
	require.NoError(t, err)
	for _, name := range []string{"daylight", "evening"} {
		require.NoError(t, st.Profiles().Create(&store.Profile{Name: name}))
	}
	require.NoError(t, st.Close())

	out, err := execute(t, "profiles", "use", "evening")
	require.NoError(t, err)
	assert.Equal(t, "active profile: evening\n", out)

	out, err = execute(t, "profiles", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.True(t, strings.HasPrefix(lines[1], " "), "daylight is not active: %q", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "*"), "evening is active: %q", lines[2])

	_, err = execute(t, "profiles", "use", "midnight")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ensureDir(filepath.Join(dir, "a", "b", "touchtyped.db")))
	assert.DirExists(t, filepath.Join(dir, "a", "b"))
	assert.NoError(t, ensureDir("touchtyped.db"))
}
