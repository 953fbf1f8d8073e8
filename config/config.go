package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-driven setting for the service.
type Config struct {
	Addr        string
	MongoURI    string
	MongoDBName string
	JWTSecret   string
	Environment string
	Domain      string

	RedisAddr     string
	RedisPassword string
	FeedChannel   string
	RateLimitKey  string
	DailyIssueCap int

	BucketEndpoint  string
	BucketAccessKey string
	BucketSecretKey string
	BucketName      string
	BucketUseSSL    bool

	OfficialSignupCode string

	ClassifierURL string
	GeocoderURL   string
	EnrichTimeout time.Duration
}

// Load reads the environment into a Config, applying development defaults.
func Load() Config {
	return Config{
		Addr:        getenv("ADDR", ":8080"),
		MongoURI:    getenv("MONGODB_URI", ""),
		MongoDBName: getenv("MONGODB_DB", "civicx"),
		JWTSecret:   getenv("JWT_SECRET", ""),
		Environment: getenv("GO_ENV", "development"),
		Domain:      getenv("DOMAIN", ""),

		RedisAddr:     getenv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		FeedChannel:   getenv("FEED_CHANNEL", "civicx:issues"),
		RateLimitKey:  getenv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		DailyIssueCap: getenvInt("DAILY_ISSUE_CAP", 10),

		BucketEndpoint:  getenv("BUCKET_ENDPOINT", "localhost:9000"),
		BucketAccessKey: getenv("BUCKET_ACCESS_KEY", ""),
		BucketSecretKey: getenv("BUCKET_SECRET_KEY", ""),
		BucketName:      getenv("BUCKET_NAME", "civicx-files"),
		BucketUseSSL:    getenvBool("BUCKET_USE_SSL", false),

		OfficialSignupCode: getenv("OFFICIAL_SIGNUP_CODE", ""),

		ClassifierURL: getenv("CLASSIFIER_URL", ""),
		GeocoderURL:   getenv("GEOCODER_URL", ""),
		EnrichTimeout: time.Duration(getenvInt("ENRICH_TIMEOUT_SECONDS", 5)) * time.Second,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
