package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The struct is built once in main and passed down
// by value; nothing mutates it after startup, so handlers and services can
// treat it as immutable process-wide state.
type Config struct {
	Env            string // application environment ("dev", "test", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Object storage (S3-compatible, e.g. Cloudflare R2). The bucket is
	// private; clients only ever see presigned URLs.
	StorageEndpoint  string // endpoint host[:port], no scheme
	StorageAccessKey string // access key id
	StorageSecretKey string // secret access key
	StorageBucket    string // bucket holding event images
	StorageRegion    string // region name ("auto" for R2)
	StorageUseSSL    bool   // whether to talk to the endpoint over TLS
	SignTTLSec       int    // default lifetime of presigned URLs in seconds
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   intOr("ACCESS_TOKEN_TTL_MIN", 10),
		RefreshTTLDays: intOr("REFRESH_TOKEN_TTL_DAYS", 1),
		BcryptCost:     intOr("BCRYPT_COST", 12),

		StorageEndpoint:  must("STORAGE_ENDPOINT"),
		StorageAccessKey: must("STORAGE_ACCESS_KEY"),
		StorageSecretKey: must("STORAGE_SECRET_KEY"),
		StorageBucket:    must("STORAGE_BUCKET"),
		StorageRegion:    getenv("STORAGE_REGION", "auto"),
		StorageUseSSL:    getenv("STORAGE_USE_SSL", "true") == "true",
		SignTTLSec:       intOr("STORAGE_SIGN_TTL_SEC", 300),
	}
}

// CookieSecure reports whether auth cookies must carry the Secure flag.
// Only the local dev environment runs without TLS.
func (c Config) CookieSecure() bool {
	return c.Env != "dev"
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr converts an optional environment variable to an integer, falling
// back to def when the variable is unset. A present but malformed value is
// a configuration mistake and aborts startup.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
