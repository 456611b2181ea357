package config

import (
	"fmt"     // For error messages
	"net/url" // For DSN escaping
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For retry delays

	"github.com/joho/godotenv"   // For loading .env files
	"github.com/sirupsen/logrus" // For log level parsing
)

// Supported store backends
const (
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	AppPort       string        // Application port
	StoreBackend  string        // mysql, postgres or memory
	DBUser        string        // Database user (mysql)
	DBPassword    string        // Database password (mysql)
	DBHost        string        // Database host (mysql)
	DBPort        string        // Database port (mysql)
	DBName        string        // Database name (mysql)
	DatabaseURL   string        // Connection URL (postgres)
	JWTSecret     string        // JWT secret key, empty disables bearer auth
	RedisAddr     string        // Redis server address, empty disables the cache
	RedisPass     string        // Redis password
	RedisDB       int           // Redis database number
	IsProd        bool          // Is production environment
	LogLevel      string        // logrus level name
	CORSOrigins   []string      // Origins allowed to call the API
	TxMaxAttempts int           // Attempts per transaction on deadlock
	TxRetryDelay  time.Duration // Delay before the first transaction retry
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:       getEnv("APP_PORT", "3001"),                                       // Application port
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),          // Store backend
		DBUser:        os.Getenv("DB_USER"),                                             // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),                                         // Database password
		DBHost:        getEnv("DB_HOST", "localhost"),                                   // Database host
		DBPort:        getEnv("DB_PORT", "3306"),                                        // Database port
		DBName:        getEnv("DB_NAME", "budget"),                                      // Database name
		DatabaseURL:   os.Getenv("DATABASE_URL"),                                        // Postgres URL
		JWTSecret:     os.Getenv("JWT_SECRET"),                                          // JWT secret key
		RedisAddr:     os.Getenv("REDIS_ADDR"),                                          // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),                                          // Redis password
		RedisDB:       redisDB,                                                          // Redis database number
		IsProd:        os.Getenv("IS_PROD") == "true",                                   // Is production environment
		LogLevel:      getEnv("LOG_LEVEL", "info"),                                      // Log level
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),       // Dashboard origins
		TxMaxAttempts: getEnvInt("TX_MAX_ATTEMPTS", 3),                                  // Transaction attempts
		TxRetryDelay:  getEnvDuration("TX_RETRY_DELAY", 20*time.Millisecond),            // Transaction retry delay
	}
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []string
	// Port must be numeric and in range
	if port, err := strconv.Atoi(c.AppPort); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.AppPort))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	// Backend specific requirements
	switch c.StoreBackend {
	case BackendMySQL:
		if c.DBUser == "" || c.DBName == "" {
			problems = append(problems, "mysql backend requires DB_USER and DB_NAME")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "postgres backend requires DATABASE_URL")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend '%s': must be mysql, postgres or memory", c.StoreBackend))
	}
	// Log level must be understood by logrus
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.TxMaxAttempts < 1 {
		problems = append(problems, "TX_MAX_ATTEMPTS must be at least 1")
	}
	// Production must not run with bearer auth switched off
	if c.IsProd && c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required in production")
	}
	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MySQLDSN builds the Data Source Name for the GORM MySQL driver.
// clientFoundRows makes UPDATE report matched rows, which the store relies on.
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName +
		"?parseTime=true&clientFoundRows=true&loc=UTC"
}

// PostgresURL normalises DATABASE_URL: postgresql:// becomes postgres:// and
// sslmode defaults to disable.
func (c *Config) PostgresURL() string {
	raw := c.DatabaseURL
	if strings.HasPrefix(raw, "postgresql://") {
		raw = "postgres://" + strings.TrimPrefix(raw, "postgresql://")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw // Let the driver report the parse error
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// getEnv returns the variable or a fallback when unset
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer variable or a fallback when unset or malformed
func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getEnvDuration returns the duration variable or a fallback when unset or malformed
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// splitList parses a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
