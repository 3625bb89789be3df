package config

import (
	"crypto/rsa"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     string
	Version  string

	JWTPrivateKey *rsa.PrivateKey

	// Document storage
	StoreDriver string
	DocumentID  string
	DataFile    string
	KeyFile     string
	DatabaseURL string
	LevelDBPath string
	Minio       MinioConfig

	RedisAddress  string
	RedisPassword string

	RabbitMQURL        string
	PainAlertQueueName string

	Feedback FeedbackConfig

	AllowedOrigins    []string
	RequestsPerMinute int
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type FeedbackConfig struct {
	APIURL string
	APIKey string
	Model  string
}

// Load reads the environment, after applying a .env file when one exists.
// It panics when the JWT private key cannot be read.
func Load() *Config {
	_ = godotenv.Load()

	privateKeyPath := getEnv("PRIVATE_KEY_PATH", "/etc/certs/private.pem")
	privateKey, err := loadPrivateKey(privateKeyPath)
	if err != nil {
		panic("Failed to load private key: " + err.Error())
	}

	cfg := LoadStorage()
	cfg.JWTPrivateKey = privateKey
	return cfg
}

// LoadStorage reads everything except the signing key. Offline commands use it.
func LoadStorage() *Config {
	_ = godotenv.Load()

	driver := strings.ToLower(getEnv("STORE_DRIVER", "file"))
	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if driver == "postgres" && dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required for the postgres store")
	}

	return &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", "8080"),
		Version:  getEnv("APP_VERSION", "unknown"),

		StoreDriver: driver,
		DocumentID:  getEnv("DOCUMENT_ID", "carelog"),
		DataFile:    getEnv("DATA_FILE", "carelog_data.json"),
		KeyFile:     getEnv("KEY_FILE", "carelog.key"),
		DatabaseURL: dbURL,
		LevelDBPath: getEnv("LEVELDB_PATH", "carelog.db"),
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "carelog"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		PainAlertQueueName: getEnv("PAIN_ALERT_QUEUE", "carelog.pain_alerts"),

		Feedback: FeedbackConfig{
			APIURL: getEnv("FEEDBACK_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
			APIKey: os.Getenv("FEEDBACK_API_KEY"),
			Model:  getEnv("FEEDBACK_MODEL", "gemini-2.0-flash"),
		},

		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RequestsPerMinute: getEnvInt("REQUESTS_PER_MINUTE", 120),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return privateKey, nil
}
