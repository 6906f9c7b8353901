package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, database connection,
// site analysis, background workers, authentication and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the environment's default log level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" yaml:"logLevel"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"5m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"4m" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"sitecheck" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Analyzer contains settings for fetching sites and deciding trust
	Analyzer struct {
		// Timeout bounds each fetch attempt including redirects
		Timeout time.Duration `env:"ANALYZER_TIMEOUT" env-default:"12s" yaml:"timeout"`
		// MaxRedirects is the number of redirects followed before giving up
		MaxRedirects int `env:"ANALYZER_MAX_REDIRECTS" env-default:"10" yaml:"maxRedirects"`
		// MaxBodyBytes caps how much of the final page is read
		MaxBodyBytes int64 `env:"ANALYZER_MAX_BODY_BYTES" env-default:"2097152" yaml:"maxBodyBytes"`
		// UserAgent is sent with every fetch; empty uses a desktop browser agent
		UserAgent string `env:"ANALYZER_USER_AGENT" yaml:"userAgent"`
		// BlockPrivateAddresses refuses to fetch loopback, private and link-local addresses
		BlockPrivateAddresses bool `env:"ANALYZER_BLOCK_PRIVATE_ADDRESSES" env-default:"true" yaml:"blockPrivateAddresses"`
		// TrustedDomains is the allowlist of root domains
		TrustedDomains []string `env:"ANALYZER_TRUSTED_DOMAINS" env-separator:"," yaml:"trustedDomains"`
		// TrustedDomainsFile optionally adds one domain per line to the allowlist
		TrustedDomainsFile string `env:"ANALYZER_TRUSTED_DOMAINS_FILE" yaml:"trustedDomainsFile"`
	} `yaml:"analyzer"`

	// Worker contains settings for background check processing
	Worker struct {
		// MaxWorkers is the number of queued checks processed concurrently
		MaxWorkers int `env:"WORKER_MAX_WORKERS" env-default:"10" yaml:"maxWorkers"`
		// MaxAttempts is the number of times a queued check is tried before failing
		MaxAttempts int `env:"WORKER_MAX_ATTEMPTS" env-default:"3" yaml:"maxAttempts"`
		// RatePerSecond caps outbound fetches across workers; 0 disables the limit
		RatePerSecond float64 `env:"WORKER_RATE_PER_SECOND" env-default:"5" yaml:"ratePerSecond"`
		// Burst is the number of fetches allowed above the steady rate
		Burst int `env:"WORKER_BURST" env-default:"5" yaml:"burst"`
	} `yaml:"worker"`

	// Bulk contains settings for multi-URL requests
	Bulk struct {
		// MaxItems is the largest number of URLs accepted at once
		MaxItems int `env:"BULK_MAX_ITEMS" env-default:"200" yaml:"maxItems"`
		// Concurrency is the number of sites analyzed in parallel by the web UI
		Concurrency int `env:"BULK_CONCURRENCY" env-default:"8" yaml:"concurrency"`
		// Timeout caps a bulk request of the web UI; it is kept below HTTP.RequestTimeout
		Timeout time.Duration `env:"BULK_TIMEOUT" env-default:"3m30s" yaml:"timeout"`
	} `yaml:"bulk"`

	// JWT contains the RS256 key pair used to sign and verify API tokens
	JWT struct {
		// PublicKey is the PEM encoded RSA public key used to verify tokens
		PublicKey string `env:"JWT_PUBLIC_KEY" yaml:"publicKey"`
		// PrivateKey is the PEM encoded RSA private key used by the jwt command
		PrivateKey string `env:"JWT_PRIVATE_KEY" yaml:"privateKey"`
	} `yaml:"jwt"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
