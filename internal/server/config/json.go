package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/cipherdrive/internal/flagx"
	"github.com/dmitrijs2005/cipherdrive/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "15m" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	PresignTTL                   timex.Duration `json:"presign_ttl"`
	RedisURL                     string         `json:"redis_url"`
	AnalysisQueue                string         `json:"analysis_queue"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. When no file is named, it is
// a no-op. An unreadable or invalid file panics: a half-applied config is
// worse than a crash at startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.PresignTTL = time.Duration(c.PresignTTL.Duration)
	config.RedisURL = c.RedisURL
	config.AnalysisQueue = c.AnalysisQueue
}
