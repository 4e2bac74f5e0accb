package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStateMissingFile(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), ".nimbus.yaml"))
	require.NoError(t, err)
	assert.Empty(t, st.CurrentStack)
	assert.NotNil(t, st.Stacks)

	entry, name, err := st.Current()
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, name)
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".nimbus.yaml")

	st, err := LoadState(path)
	require.NoError(t, err)

	st.Add("dev", &StackEntry{ConfigFile: "nimbus.yaml", Profile: "default", Region: "eu-central-1"})
	st.Add("production", &StackEntry{ConfigFile: "prod.yaml", Profile: "prod", Region: "eu-west-1"})
	assert.Equal(t, "dev", st.CurrentStack)

	require.NoError(t, st.Use("production"))
	require.NoError(t, st.Save(path))

	loaded, err := LoadState(path)
	require.NoError(t, err)

	entry, name, err := loaded.Current()
	require.NoError(t, err)
	assert.Equal(t, "production", name)
	assert.Equal(t, "prod.yaml", entry.ConfigFile)
	assert.Equal(t, []string{"dev", "production"}, loaded.Names())
}

func TestStateUseUnknown(t *testing.T) {
	st := &State{Stacks: map[string]*StackEntry{}}
	assert.EqualError(t, st.Use("ghost"), `stack "ghost" not found`)
}

func TestStateRemoveCurrent(t *testing.T) {
	st := &State{Stacks: map[string]*StackEntry{}}
	st.Add("dev", &StackEntry{})
	st.Remove("dev")

	assert.Empty(t, st.CurrentStack)
	assert.Empty(t, st.Names())
}

func TestLoadStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".nimbus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stacks: [unclosed"), 0644))

	_, err := LoadState(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse state file")
}

func TestStatePathOverride(t *testing.T) {
	t.Setenv("NIMBUS_STATE_FILE", "/tmp/state.yaml")
	assert.Equal(t, "/tmp/state.yaml", StatePath())
}
