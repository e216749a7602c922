package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays values from environment variables. cmd/server loads a
// .env file into the environment beforehand, so the same names work there.
//
// Malformed numbers or durations panic, mirroring the JSON and flag layers.
func parseEnv(config *Config) {
	envString(&config.HTTPAddress, "HTTP_ADDRESS")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "JWT_SECRET")
	envString(&config.LogLevel, "LOG_LEVEL")
	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	envDuration(&config.ResetTokenValidityDuration, "RESET_TOKEN_TTL")

	envString(&config.StorageType, "STORAGE_TYPE")
	envString(&config.S3RootUser, "S3_ACCESS_KEY")
	envString(&config.S3RootPassword, "S3_SECRET_KEY")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	envString(&config.S3PublicURL, "S3_PUBLIC_URL")

	envString(&config.ProcessorBaseURL, "PROCESSOR_BASE_URL")
	envDuration(&config.ProcessorTimeout, "PROCESSOR_TIMEOUT")
	envDuration(&config.DownloadTimeout, "DOWNLOAD_TIMEOUT")
	envInt(&config.MaxUploadBytes, "MAX_UPLOAD_BYTES")

	envString(&config.SMTPHost, "SMTP_HOST")
	envInt(&config.SMTPPort, "SMTP_PORT")
	envString(&config.SMTPUser, "SMTP_USER")
	envString(&config.SMTPPassword, "SMTP_PASSWORD")
	envString(&config.SMTPSender, "SMTP_SENDER")

	envString(&config.QueueType, "QUEUE_TYPE")
	envString(&config.SQSQueueURL, "SQS_QUEUE_URL")
	envInt(&config.Workers, "WORKERS")

	envString(&config.ApplicationName, "APPLICATION_NAME")
	envString(&config.BaseURL, "BASE_URL")
	envString(&config.LoginPageURL, "LOGIN_PAGE_URL")
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && v != "" {
		config.AllowedOrigins = splitList(v)
	}
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envInt[T ~int | ~int64](dst *T, name string) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = T(n)
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
