package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Warrant Sniper Configuration

[transport]
# MongoDB connection string for the shared document store.
# Leave empty (or set offline = true) to run without a backend.
mongo_uri = ""
database = "warrant_sniper"
command_collection = "search_commands"
result_collection = "search_results"
connect_timeout = "10s"
offline = false

[filter]
# Strict high-win-rate screen applied to backend results.
excluded_brokers = ["統一"]
min_days_to_maturity = 90
min_leverage = 2.5
max_leverage = 9.0
max_theta_percent = 2.5
min_volume = 10.0
min_price = 0.25
max_price = 3.0
max_spread = 0.03

[auth]
# Failed attempts before lockout and lockout window in seconds.
max_attempts = 3
lockout_seconds = 300

[ui]
color_enabled = true
time_format = "15:04:05"
`

const credentialsTemplate = `# Warrant Sniper Credentials
# Keep this file private (chmod 600).

# Access passcode for the login gate. Empty disables the gate.
passcode = ""
# Engineer override code, if any.
override_code = ""

[openai]
api_key = ""
model = "gpt-4o-mini"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
