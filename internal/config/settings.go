package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults applied when settings.json leaves a value unset.
const (
	DefaultCommandTimeout       = 30 * time.Second
	DefaultFetchInterval        = 5 * time.Minute
	DefaultPollInterval         = 30 * time.Second
	DefaultNotificationCooldown = 30 * time.Minute
	DefaultRefreshDebounce      = 500 * time.Millisecond
)

// Settings represents the structure of ~/.repowatch/settings.json.
// Pointer fields distinguish "unset" from an explicit zero so CLI flags and
// environment variables can take precedence.
type Settings struct {
	CommandTimeoutSeconds       *int        `json:"command_timeout_seconds,omitempty"`
	CustomPathEntries           StringArray `json:"custom_path_entries,omitempty"`
	DatabasePath                string      `json:"database_path,omitempty"`
	Debug                       *bool       `json:"debug,omitempty"`
	FetchIntervalMinutes        *int        `json:"fetch_interval_minutes,omitempty"`
	MaxLogFiles                 *int        `json:"max_log_files,omitempty"`
	NotificationCooldownMinutes *int        `json:"notification_cooldown_minutes,omitempty"`
	NotificationsEnabled        *bool       `json:"notifications_enabled,omitempty"`
	PollIntervalSeconds         *int        `json:"poll_interval_seconds,omitempty"`
	RefreshDebounceMillis       *int        `json:"refresh_debounce_millis,omitempty"`
}

// StringArray supports both JSON arrays and comma-separated strings
type StringArray []string

// UnmarshalJSON implements custom unmarshaling for StringArray
func (sa *StringArray) UnmarshalJSON(data []byte) error {
	// Try array format first
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*sa = arr
		return nil
	}

	// Fall back to comma-separated string
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*sa = parseCommaSeparated(str)
	return nil
}

// parseCommaSeparated splits comma-separated string and trims whitespace
func parseCommaSeparated(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// CommandTimeout returns the configured per-command timeout or the default.
func (s *Settings) CommandTimeout() time.Duration {
	if s.CommandTimeoutSeconds != nil && *s.CommandTimeoutSeconds > 0 {
		return time.Duration(*s.CommandTimeoutSeconds) * time.Second
	}
	return DefaultCommandTimeout
}

// FetchInterval returns the default per-repository fetch interval.
func (s *Settings) FetchInterval() time.Duration {
	if s.FetchIntervalMinutes != nil && *s.FetchIntervalMinutes > 0 {
		return time.Duration(*s.FetchIntervalMinutes) * time.Minute
	}
	return DefaultFetchInterval
}

// PollInterval returns the status poll loop interval.
func (s *Settings) PollInterval() time.Duration {
	if s.PollIntervalSeconds != nil && *s.PollIntervalSeconds > 0 {
		return time.Duration(*s.PollIntervalSeconds) * time.Second
	}
	return DefaultPollInterval
}

// NotificationCooldown returns the alert suppression window.
func (s *Settings) NotificationCooldown() time.Duration {
	if s.NotificationCooldownMinutes != nil && *s.NotificationCooldownMinutes > 0 {
		return time.Duration(*s.NotificationCooldownMinutes) * time.Minute
	}
	return DefaultNotificationCooldown
}

// RefreshDebounce returns the quiet period applied to refresh storms.
func (s *Settings) RefreshDebounce() time.Duration {
	if s.RefreshDebounceMillis != nil && *s.RefreshDebounceMillis > 0 {
		return time.Duration(*s.RefreshDebounceMillis) * time.Millisecond
	}
	return DefaultRefreshDebounce
}

// GetHomePath returns $REPOWATCH_HOME or ~/.repowatch
func GetHomePath() string {
	if home := os.Getenv("REPOWATCH_HOME"); home != "" {
		return home
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repowatch"
	}
	return filepath.Join(homeDir, ".repowatch")
}

// GetSettingsPath returns the path of settings.json
func GetSettingsPath() string {
	return filepath.Join(GetHomePath(), "settings.json")
}

// GetDBPath returns the repository database path, honoring the settings
// override.
func (s *Settings) GetDBPath() string {
	if s.DatabasePath != "" {
		return ExpandPath(s.DatabasePath)
	}
	return filepath.Join(GetHomePath(), "repowatch.db")
}

// ExpandPath expands a leading ~ to the user home directory
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

// LoadSettings loads settings from settings.json.
// Returns empty Settings if the file doesn't exist (not an error).
func LoadSettings() (*Settings, error) {
	path := GetSettingsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil // Not an error, use defaults
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	return &settings, nil
}

// SaveSettings saves settings to settings.json
func SaveSettings(settings *Settings) error {
	path := GetSettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
