package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cipherdrive/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL   string `json:"server_url"`
	DownloadDir string `json:"download_dir"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DownloadDir != "" {
		cfg.DownloadDir = jc.DownloadDir
	}
}
