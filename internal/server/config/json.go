package config

import (
	"encoding/json"
	"os"

	"github.com/avoronov/contenthub/internal/flagx"
	"github.com/avoronov/contenthub/internal/timex"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
// It uses timex.Duration for interval fields so JSON can specify values
// either as strings ("15m") or as integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr     string         `json:"endpoint_addr"`
	DatabaseDSN      string         `json:"database_dsn"`
	SigningKey       string         `json:"signing_key"`
	ClockSkew        timex.Duration `json:"clock_skew"`
	AccessTokenTTL   timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL  timex.Duration `json:"refresh_token_ttl"`
	OpenAIBaseURL    string         `json:"openai_base_url"`
	OpenAIAPIKey     string         `json:"openai_api_key"`
	OpenAIModel      string         `json:"openai_model"`
	OpenAIImageModel string         `json:"openai_image_model"`
	GoogleNLPBaseURL string         `json:"google_nlp_base_url"`
	GoogleAPIKey     string         `json:"google_api_key"`
	AITimeout        timex.Duration `json:"ai_timeout"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config. The file path comes from the -c or -config flags; when neither is
// set, no JSON file is loaded. Unset fields keep their current values.
// An unreadable file or invalid JSON panics — the process must not start
// half-configured.
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

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SigningKey != "" {
		config.SigningKey = c.SigningKey
	}
	if c.ClockSkew.Duration != 0 {
		config.ClockSkew = c.ClockSkew.Duration
	}
	if c.AccessTokenTTL.Duration != 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL.Duration != 0 {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.OpenAIBaseURL != "" {
		config.OpenAIBaseURL = c.OpenAIBaseURL
	}
	if c.OpenAIAPIKey != "" {
		config.OpenAIAPIKey = c.OpenAIAPIKey
	}
	if c.OpenAIModel != "" {
		config.OpenAIModel = c.OpenAIModel
	}
	if c.OpenAIImageModel != "" {
		config.OpenAIImageModel = c.OpenAIImageModel
	}
	if c.GoogleNLPBaseURL != "" {
		config.GoogleNLPBaseURL = c.GoogleNLPBaseURL
	}
	if c.GoogleAPIKey != "" {
		config.GoogleAPIKey = c.GoogleAPIKey
	}
	if c.AITimeout.Duration != 0 {
		config.AITimeout = c.AITimeout.Duration
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
