package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	assert.Equal(t, DefaultCommandTimeout, s.CommandTimeout())
	assert.Equal(t, DefaultFetchInterval, s.FetchInterval())
	assert.Equal(t, DefaultPollInterval, s.PollInterval())
	assert.Equal(t, DefaultNotificationCooldown, s.NotificationCooldown())
	assert.Equal(t, DefaultRefreshDebounce, s.RefreshDebounce())
}

func TestSettings_ExplicitValues(t *testing.T) {
	s := &Settings{
		CommandTimeoutSeconds:       intPtr(10),
		FetchIntervalMinutes:        intPtr(2),
		PollIntervalSeconds:         intPtr(15),
		NotificationCooldownMinutes: intPtr(5),
		RefreshDebounceMillis:       intPtr(250),
	}

	assert.Equal(t, 10*time.Second, s.CommandTimeout())
	assert.Equal(t, 2*time.Minute, s.FetchInterval())
	assert.Equal(t, 15*time.Second, s.PollInterval())
	assert.Equal(t, 5*time.Minute, s.NotificationCooldown())
	assert.Equal(t, 250*time.Millisecond, s.RefreshDebounce())
}

func TestSettings_NonPositiveFallsBackToDefaults(t *testing.T) {
	s := &Settings{
		CommandTimeoutSeconds: intPtr(0),
		FetchIntervalMinutes:  intPtr(-1),
	}

	assert.Equal(t, DefaultCommandTimeout, s.CommandTimeout())
	assert.Equal(t, DefaultFetchInterval, s.FetchInterval())
}

func TestStringArray_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "array format",
			input: `["/usr/local/bin", "/opt/git/bin"]`,
			want:  []string{"/usr/local/bin", "/opt/git/bin"},
		},
		{
			name:  "comma-separated string",
			input: `"/usr/local/bin, /opt/git/bin"`,
			want:  []string{"/usr/local/bin", "/opt/git/bin"},
		},
		{
			name:  "empty string",
			input: `""`,
			want:  []string{},
		},
		{
			name:  "string with empty segments",
			input: `"/a,, /b ,"`,
			want:  []string{"/a", "/b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sa StringArray
			require.NoError(t, json.Unmarshal([]byte(tt.input), &sa))
			assert.Equal(t, StringArray(tt.want), sa)
		})
	}
}

func TestStringArray_UnmarshalJSON_Invalid(t *testing.T) {
	var sa StringArray
	assert.Error(t, json.Unmarshal([]byte(`42`), &sa))
}

func TestGetHomePath_EnvOverride(t *testing.T) {
	t.Setenv("REPOWATCH_HOME", "/custom/home")

	assert.Equal(t, "/custom/home", GetHomePath())
	assert.Equal(t, filepath.Join("/custom/home", "settings.json"), GetSettingsPath())
}

func TestGetDBPath(t *testing.T) {
	t.Setenv("REPOWATCH_HOME", "/custom/home")

	s := &Settings{}
	assert.Equal(t, filepath.Join("/custom/home", "repowatch.db"), s.GetDBPath())

	s.DatabasePath = "/data/repos.db"
	assert.Equal(t, "/data/repos.db", s.GetDBPath())
}

func TestLoadSettings_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("REPOWATCH_HOME", t.TempDir())

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Nil(t, s.PollIntervalSeconds)
}

func TestSaveAndLoadSettings_RoundTrip(t *testing.T) {
	t.Setenv("REPOWATCH_HOME", t.TempDir())

	in := &Settings{
		PollIntervalSeconds: intPtr(20),
		CustomPathEntries:   StringArray{"/opt/git/bin"},
		DatabasePath:        "/data/repos.db",
	}
	require.NoError(t, SaveSettings(in))

	out, err := LoadSettings()
	require.NoError(t, err)
	require.NotNil(t, out.PollIntervalSeconds)
	assert.Equal(t, 20, *out.PollIntervalSeconds)
	assert.Equal(t, StringArray{"/opt/git/bin"}, out.CustomPathEntries)
	assert.Equal(t, "/data/repos.db", out.DatabasePath)
	assert.Nil(t, out.Debug)
}

func TestLoadSettings_InvalidJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("REPOWATCH_HOME", home)
	require.NoError(t, SaveSettings(&Settings{}))

	// Corrupt the file in place.
	path := filepath.Join(home, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadSettings()
	assert.Error(t, err)
}
