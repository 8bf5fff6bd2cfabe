package dechatter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile_yaml(t *testing.T) {
	path := writeConfig(t, "dechatter.yaml", `
timeouts:
  - "1:83:30"
  - "30:30:50"
name:
  - "c:Keyboard"
physicalPath:
  - "e:input0"
index: 1
skipFirst: true
`)
	fc, err := LoadConfigFile(path)
	require.Nil(t, err)
	require.Equal(t, []string{"1:83:30", "30:30:50"}, fc.Timeouts)
	require.Equal(t, []string{"c:Keyboard"}, fc.Name)
	require.Nil(t, fc.Path)
	require.Equal(t, []string{"e:input0"}, fc.PhysicalPath)
	require.NotNil(t, fc.Index)
	require.Equal(t, 1, *fc.Index)
	require.NotNil(t, fc.SkipFirst)
	require.True(t, *fc.SkipFirst)
}

func TestLoadConfigFile_toml(t *testing.T) {
	path := writeConfig(t, "dechatter.toml", `
timeouts = ["1:83:30"]
path = ["/dev/input/event3"]
index = 0
`)
	fc, err := LoadConfigFile(path)
	require.Nil(t, err)
	require.Equal(t, []string{"1:83:30"}, fc.Timeouts)
	require.Equal(t, []string{"/dev/input/event3"}, fc.Path)
	require.NotNil(t, fc.Index)
	require.Equal(t, 0, *fc.Index)
	require.Nil(t, fc.SkipFirst)
}

func TestLoadConfigFile_empty(t *testing.T) {
	fc, err := LoadConfigFile(writeConfig(t, "empty.yml", ""))
	require.Nil(t, err)
	require.Equal(t, FileConfig{}, *fc)
}

func TestLoadConfigFile_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown.yaml", "timeout: [\"1:2:3\"]\n"},
		{"pattern.yaml", "timeouts: [\"1:2\"]\n"},
		{"negative.yaml", "index: -1\n"},
		{"type.yaml", "skipFirst: \"yes\"\n"},
		{"unknown.toml", "verbose = true\n"},
		{"pattern.toml", "timeouts = [\"a:b:c\"]\n"},
	}
	for _, tt := range tests {
		_, err := LoadConfigFile(writeConfig(t, tt.name, tt.content))
		require.ErrorIs(t, err, InvalidConfigErr, tt.name)
	}
}

func TestLoadConfigFile_errors(t *testing.T) {
	_, err := LoadConfigFile(writeConfig(t, "dechatter.json", "{}"))
	require.ErrorIs(t, err, UnknownConfigFormatErr)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfigFile(writeConfig(t, "broken.toml", "timeouts = [\n"))
	require.Error(t, err)
	require.NotErrorIs(t, err, InvalidConfigErr)
}

func TestApplyFile(t *testing.T) {
	index := 2
	skipFirst := true
	fc := &FileConfig{
		Timeouts:  []string{"1:83:30"},
		Name:      []string{"c:Keyboard"},
		Index:     &index,
		SkipFirst: &skipFirst,
	}

	c := DechatterCmdConfig{NodeTimeout: time.Second}
	require.Nil(t, c.Timeouts.Set("30:30:50"))
	require.Nil(t, c.Filters.Name.Set("e:K120"))
	require.Nil(t, c.ApplyFile(fc))
	require.Equal(t, KeyRangeTimeouts{{1, 83, 30 * ms}, {30, 30, 50 * ms}}, c.Timeouts)
	require.Equal(t, Filters{{Contains, "Keyboard"}, {EndsWith, "K120"}}, c.Filters.Name)
	require.Empty(t, c.Filters.Path)
	require.Equal(t, 2, c.Index)
	require.True(t, c.SkipFirst)

	// command line wins
	c = DechatterCmdConfig{IndexSet: true, SkipFirstSet: true}
	require.Nil(t, c.ApplyFile(fc))
	require.Equal(t, 0, c.Index)
	require.False(t, c.SkipFirst)

	fc.Timeouts = []string{"3:1:30"}
	require.ErrorIs(t, c.ApplyFile(fc), EmptyKeyRangeErr)
}
