// Package config handles configuration for the CLI client.
package config

// Config holds runtime settings for the cipherdrive CLI.
//
// Fields:
//   - ServerURL: base URL of the backend HTTP API.
//   - DownloadDir: subdirectory (under the working directory) for
//     decrypted downloads.
type Config struct {
	ServerURL   string
	DownloadDir string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DownloadDir = "downloads"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
