package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/soundfilter/internal/flagx"
	"github.com/dmitrijs2005/soundfilter/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "15m" strings and integer nanoseconds. Fields left out of the file keep
// their current value.
type JsonConfig struct {
	HTTPAddress                  string         `json:"http_address"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	LogLevel                     string         `json:"log_level"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`

	StorageType    string `json:"storage_type"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3PublicURL    string `json:"s3_public_url"`

	ProcessorBaseURL string         `json:"processor_base_url"`
	ProcessorTimeout timex.Duration `json:"processor_timeout"`
	DownloadTimeout  timex.Duration `json:"download_timeout"`
	MaxUploadBytes   int64          `json:"max_upload_bytes"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	SMTPSender   string `json:"smtp_sender"`

	QueueType   string `json:"queue_type"`
	SQSQueueURL string `json:"sqs_queue_url"`
	Workers     int    `json:"workers"`

	ApplicationName string   `json:"application_name"`
	BaseURL         string   `json:"base_url"`
	LoginPageURL    string   `json:"login_page_url"`
	AllowedOrigins  []string `json:"allowed_origins"`
}

// parseJson loads the file named by -c/-config, if any, and copies every
// field that is set in it into config. A file that cannot be read or parsed
// panics: the server must not start with a half-applied configuration.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddress, c.HTTPAddress)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setPositive(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	setPositive(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration.Duration)
	setPositive(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration.Duration)

	setString(&config.StorageType, c.StorageType)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)

	setString(&config.ProcessorBaseURL, c.ProcessorBaseURL)
	setPositive(&config.ProcessorTimeout, c.ProcessorTimeout.Duration)
	setPositive(&config.DownloadTimeout, c.DownloadTimeout.Duration)
	setPositive(&config.MaxUploadBytes, c.MaxUploadBytes)

	setString(&config.SMTPHost, c.SMTPHost)
	setPositive(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPSender, c.SMTPSender)

	setString(&config.QueueType, c.QueueType)
	setString(&config.SQSQueueURL, c.SQSQueueURL)
	setPositive(&config.Workers, c.Workers)

	setString(&config.ApplicationName, c.ApplicationName)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.LoginPageURL, c.LoginPageURL)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPositive[T ~int | ~int64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}
