package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Firebase FirebaseConfig
	Embed    EmbedConfig
	Auth     AuthConfig
	Playbook PlaybookConfig
	Matrix   MatrixTimings
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	StoreDriver        string // "memory" or "redis"
}

// FirebaseConfig carries the raw connection descriptor exactly as the hosting
// environment supplied it. It is resolved per view, never here.
type FirebaseConfig struct {
	RawJSON string
}

type EmbedConfig struct {
	LookerStudioURL string
}

type AuthConfig struct {
	JWTSecret         string
	InitialAuthToken  string
	SessionTTL        time.Duration
	SessionCookieName string
}

type PlaybookConfig struct {
	URL       string
	ClientID  int
	UseCaseID int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// TracingConfig drives the OTLP exporter. Tracing stays off unless Enabled.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

type MatrixTimings struct {
	RenderWait   time.Duration
	StallTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/matrix_ws.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			StoreDriver:        getEnv("STORE_DRIVER", "memory"),
		},
		Firebase: FirebaseConfig{
			RawJSON: firebaseDescriptor(),
		},
		Embed: EmbedConfig{
			LookerStudioURL: getEnv("LOOKER_STUDIO_EMBED_URL", PlaceholderEmbedURL),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			InitialAuthToken:  getEnv("INITIAL_AUTH_TOKEN", ""),
			SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			SessionCookieName: getEnv("SESSION_COOKIE_NAME", "dva_session"),
		},
		Playbook: PlaybookConfig{
			URL:       getEnv("PLAYBOOK_URL", ""),
			ClientID:  getEnvAsInt("PLAYBOOK_CLIENT_ID", 100),
			UseCaseID: getEnvAsInt("PLAYBOOK_USE_CASE_ID", 10),
			CacheTTL:  getEnvAsDuration("PLAYBOOK_CACHE_TTL", 15*time.Minute),
			Timeout:   getEnvAsDuration("PLAYBOOK_TIMEOUT", 60*time.Second),
		},
		Matrix: MatrixTimings{
			RenderWait:   getEnvAsDuration("MATRIX_RENDER_WAIT", 2*time.Second),
			StallTimeout: getEnvAsDuration("MATRIX_STALL_TIMEOUT", 0),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "dva-dashboard-backend"),
			SampleRatio: getEnvAsFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
}

// firebaseDescriptor prefers a complete JSON blob and otherwise assembles one
// from the individual keys. Unset keys are left out so that an empty
// environment produces "{}" and is later reported as missing.
func firebaseDescriptor() string {
	if raw, ok := os.LookupEnv("FIREBASE_CONFIG"); ok && raw != "" {
		return raw
	}

	fields := map[string]string{}
	for key, env := range map[string]string{
		"apiKey":            "FIREBASE_API_KEY",
		"authDomain":        "FIREBASE_AUTH_DOMAIN",
		"projectId":         "FIREBASE_PROJECT_ID",
		"storageBucket":     "FIREBASE_STORAGE_BUCKET",
		"messagingSenderId": "FIREBASE_MESSAGING_SENDER_ID",
		"appId":             "FIREBASE_APP_ID",
	} {
		if v := getEnv(env, ""); v != "" {
			fields[key] = v
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(data)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
