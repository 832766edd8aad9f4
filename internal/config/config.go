package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the server and supporting services.
type Config struct {
	ListenAddr        string
	MySQLDSN          string
	SessionSecret     string
	ReplicateAPIToken string
	ReplicateBaseURL  string
	ReplicateModel    string
	GenerationTimeout time.Duration
	PollInterval      time.Duration
	InitialCredits    int
	MirrorImages      bool
	S3Endpoint        string
	S3Region          string
	S3AccessKey       string
	S3SecretKey       string
	S3Bucket          string
	S3PublicBaseURL   string
	S3UsePathStyle    bool
	S3Prefix          string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultReplicateBaseURL = "https://api.replicate.com"

	cfg := Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		ReplicateBaseURL:  normalizeBaseURL(getEnv("REPLICATE_BASE_URL", defaultReplicateBaseURL), defaultReplicateBaseURL),
		ReplicateModel:    getEnv("REPLICATE_MODEL_VERSION", "fpsorg/emoji:2489b7892129c47ec8590fd3e86270b8804f2ff07faeae8c306342fad2f48df6"),
		GenerationTimeout: time.Second * time.Duration(getInt("GENERATION_TIMEOUT_SECONDS", 55)),
		PollInterval:      time.Second * time.Duration(getInt("GENERATION_POLL_SECONDS", 1)),
		InitialCredits:    getInt("INITIAL_CREDITS", 3),
		MirrorImages:      getBool("MIRROR_IMAGES", false),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          os.Getenv("S3_REGION"),
		S3AccessKey:       os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:       os.Getenv("S3_SECRET_KEY"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:    getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:          getEnv("S3_PREFIX", "emojis"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.ReplicateAPIToken = os.Getenv("REPLICATE_API_TOKEN")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if cfg.ReplicateAPIToken == "" {
		missing = append(missing, "REPLICATE_API_TOKEN")
	}
	if cfg.MirrorImages {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if cfg.S3PublicBaseURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.InitialCredits < 0 {
		cfg.InitialCredits = 0
	}

	return cfg, nil
}

// normalizeBaseURL keeps the vendor base URL usable even when the env var is set
// to a bare domain without a scheme.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}

	// No env file is fine when everything comes from the real environment.
	return nil
}
