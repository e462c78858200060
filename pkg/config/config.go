package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	AppEnv       string
	IsStaging    bool
	IsProduction bool

	JWTSecret string
	Port      string

	// DatabaseDSN selects MySQL when set; otherwise a local sqlite file
	// at SQLitePath is used.
	DatabaseDSN string
	SQLitePath  string

	// Assistant backend
	AssistantBaseURL        string
	AssistantTimeoutSeconds int
	StreamDelayMillis       int

	// runtime tunables
	HistoryLimit           int
	FreePromptLimit        int
	FreeDocScanLimit       int
	ProPromptLimit         int
	ProDocScanLimit        int
	ReplyCacheTTLSeconds   int
	ReplyCacheMaxItems     int
	RateLimitWindowSeconds int
	RateLimitCapacity      int
)

// loadAppEnv loads .env for non-production environments. Production is
// expected to carry its configuration in the process environment.
func loadAppEnv() {
	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
}

func init() {
	loadAppEnv()

	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "" {
		AppEnv = "staging"
	}
	IsStaging = AppEnv == "staging"
	IsProduction = AppEnv == "production"

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "5000"
	}

	DatabaseDSN = os.Getenv("DATABASE_DSN")
	SQLitePath = os.Getenv("SQLITE_PATH")
	if SQLitePath == "" {
		SQLitePath = "app.db"
	}

	AssistantBaseURL = os.Getenv("ASSISTANT_BASE_URL")
	AssistantTimeoutSeconds = atoiOr(os.Getenv("ASSISTANT_TIMEOUT_SECONDS"), 30)
	StreamDelayMillis = atoiOr(os.Getenv("STREAM_DELAY_MILLIS"), 50)

	HistoryLimit = atoiOr(os.Getenv("HISTORY_LIMIT"), 50)
	FreePromptLimit = atoiOr(os.Getenv("FREE_PROMPT_LIMIT"), 10)
	FreeDocScanLimit = atoiOr(os.Getenv("FREE_DOC_SCAN_LIMIT"), 3)
	ProPromptLimit = atoiOr(os.Getenv("PRO_PROMPT_LIMIT"), 200)
	ProDocScanLimit = atoiOr(os.Getenv("PRO_DOC_SCAN_LIMIT"), 50)
	ReplyCacheTTLSeconds = atoiOr(os.Getenv("REPLY_CACHE_TTL_SECONDS"), 600)
	ReplyCacheMaxItems = atoiOr(os.Getenv("REPLY_CACHE_MAX_ITEMS"), 500)
	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 5)

	if IsProduction && JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set in production")
	}

	log.Printf("[config] AppEnv=%s IsStaging=%v IsProduction=%v", AppEnv, IsStaging, IsProduction)
	log.Printf("[config] AssistantBaseURLPresent=%v timeout=%ds streamDelay=%dms",
		AssistantBaseURL != "", AssistantTimeoutSeconds, StreamDelayMillis)
	log.Printf("[config] quota free=%d/%d pro=%d/%d history=%d cacheTTL=%ds cacheMax=%d",
		FreePromptLimit, FreeDocScanLimit, ProPromptLimit, ProDocScanLimit,
		HistoryLimit, ReplyCacheTTLSeconds, ReplyCacheMaxItems)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
