package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration derived from environment variables,
// with optional overrides from a YAML (or JSON) config file.
type Config struct {
	HTTPPort      string
	PhotosDir     string
	WorkDir       string
	InboxDir      string
	DBPath        string
	PublicBaseURL string

	QueueSize     int
	WorkerCount   int
	JobTimeoutSec int

	EnableWatcher bool
	StrictConfig  bool

	Provider string // "azure" or "openai"
	Vision   VisionConfig

	ThumbMaxPx int

	Vocabulary VocabularyConfig
}

// VisionConfig captures credentials and tuning for the vision providers.
type VisionConfig struct {
	AzureEndpoint string  `json:"azure_endpoint" yaml:"azure_endpoint"`
	AzureKey      string  `json:"azure_key" yaml:"azure_key"`
	OpenAIBaseURL string  `json:"openai_base_url" yaml:"openai_base_url"`
	OpenAIModel   string  `json:"openai_model" yaml:"openai_model"`
	OpenAIAPIKey  string  `json:"openai_api_key" yaml:"openai_api_key"`
	TimeoutSec    int     `json:"timeout_sec" yaml:"timeout_sec"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

type fileConfig struct {
	HTTPPort   string           `json:"http_port" yaml:"http_port"`
	PhotosDir  string           `json:"photos_dir" yaml:"photos_dir"`
	WorkDir    string           `json:"work_dir" yaml:"work_dir"`
	InboxDir   string           `json:"inbox_dir" yaml:"inbox_dir"`
	DBPath     string           `json:"db_path" yaml:"db_path"`
	Provider   string           `json:"provider" yaml:"provider"`
	Vision     VisionConfig     `json:"vision" yaml:"vision"`
	Vocabulary VocabularyConfig `json:"vocabulary" yaml:"vocabulary"`
}

const (
	defaultPort          = ":8000"
	defaultPhotosDir     = "runtime/photos"
	defaultWorkDir       = "runtime/work"
	defaultDBFile        = "inspections.db"
	defaultProvider      = "azure"
	defaultThumbMaxPx    = 320
	minQueueSize         = 1
	defaultQueueSize     = 100
	maxQueueSize         = 1024
	defaultWorkerCount   = 4
	defaultJobTimeoutSec = 120
)

// Load reads configuration from environment variables (a .env file is
// honored if present) and applies sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		QueueSize:     defaultQueueSize,
		WorkerCount:   defaultWorkerCount,
		JobTimeoutSec: defaultJobTimeoutSec,
		ThumbMaxPx:    defaultThumbMaxPx,
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		StrictConfig:  parseBoolEnv("STRICT_CONFIG"),
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}

	cfg.PhotosDir = firstNonEmpty(os.Getenv("PHOTOS_DIR"), fileCfg.PhotosDir, defaultPhotosDir)
	cfg.WorkDir = firstNonEmpty(os.Getenv("WORK_DIR"), fileCfg.WorkDir, defaultWorkDir)
	cfg.InboxDir = firstNonEmpty(os.Getenv("INBOX_DIR"), fileCfg.InboxDir)
	cfg.EnableWatcher = parseBoolEnvDefault("ENABLE_WATCHER", cfg.InboxDir != "")
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	} else if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	} else {
		cfg.DBPath = filepath.Join(cfg.WorkDir, defaultDBFile)
	}

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && cfg.HTTPPort == defaultPort {
		cfg.HTTPPort = legacyPort
	}
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if v := os.Getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("invalid WORKER_COUNT=%q, using default %d", v, defaultWorkerCount)
			n = defaultWorkerCount
		}
		cfg.WorkerCount = n
	}

	if v := os.Getenv("JOB_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid JOB_QUEUE_SIZE=%q, using default %d", v, defaultQueueSize)
			n = defaultQueueSize
		}
		if n < minQueueSize {
			log.Printf("JOB_QUEUE_SIZE raised to minimum %d (was %d)", minQueueSize, n)
			n = minQueueSize
		}
		if n > maxQueueSize {
			log.Printf("JOB_QUEUE_SIZE capped at %d (was %d)", maxQueueSize, n)
			n = maxQueueSize
		}
		cfg.QueueSize = n
	}
	if cfg.QueueSize < cfg.WorkerCount {
		log.Printf("JOB_QUEUE_SIZE must be >= WORKER_COUNT; using default %d", defaultQueueSize)
		cfg.QueueSize = max(defaultQueueSize, cfg.WorkerCount)
	}

	if v := os.Getenv("JOB_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid JOB_TIMEOUT_SEC: %w", err)
		}
		if n <= 0 {
			return cfg, errors.New("JOB_TIMEOUT_SEC must be positive")
		}
		cfg.JobTimeoutSec = n
	}

	if v := os.Getenv("THUMB_MAX_PX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 {
			log.Printf("invalid THUMB_MAX_PX=%q, using default %d", v, defaultThumbMaxPx)
			n = defaultThumbMaxPx
		}
		cfg.ThumbMaxPx = n
	}

	cfg.Provider = strings.ToLower(firstNonEmpty(os.Getenv("VISION_PROVIDER"), fileCfg.Provider, defaultProvider))

	cfg.Vision = applyVisionOverrides(defaultVisionConfig(), fileCfg.Vision)
	if v := strings.TrimSpace(os.Getenv("AZURE_VISION_ENDPOINT")); v != "" {
		cfg.Vision.AzureEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("AZURE_VISION_KEY")); v != "" {
		cfg.Vision.AzureKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Vision.OpenAIAPIKey = v
	}
	cfg.Vision.OpenAIBaseURL = firstNonEmpty(
		os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENAI_API_BASE"),
		cfg.Vision.OpenAIBaseURL,
	)
	if v := strings.TrimSpace(os.Getenv("OPENAI_VISION_MODEL")); v != "" {
		cfg.Vision.OpenAIModel = v
	}
	if v, ok, err := parseFloatEnv("VISION_MIN_CONFIDENCE"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid VISION_MIN_CONFIDENCE: %w", err)
		}
		log.Printf("invalid VISION_MIN_CONFIDENCE: %v (using default)", err)
	} else if ok && v >= 0 && v <= 1 {
		cfg.Vision.MinConfidence = v
	}

	cfg.Vocabulary = MergeVocabularyConfig(DefaultVocabularyConfig(), fileCfg.Vocabulary)

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config validation failed: %v (continuing)", err)
	}

	return cfg, nil
}

func defaultVisionConfig() VisionConfig {
	return VisionConfig{
		OpenAIBaseURL: "https://api.openai.com",
		OpenAIModel:   "gpt-4o-mini",
		TimeoutSec:    60,
	}
}

func applyVisionOverrides(base VisionConfig, override VisionConfig) VisionConfig {
	if strings.TrimSpace(override.AzureEndpoint) != "" {
		base.AzureEndpoint = strings.TrimSpace(override.AzureEndpoint)
	}
	if strings.TrimSpace(override.AzureKey) != "" {
		base.AzureKey = strings.TrimSpace(override.AzureKey)
	}
	if strings.TrimSpace(override.OpenAIBaseURL) != "" {
		base.OpenAIBaseURL = strings.TrimSpace(override.OpenAIBaseURL)
	}
	if strings.TrimSpace(override.OpenAIModel) != "" {
		base.OpenAIModel = strings.TrimSpace(override.OpenAIModel)
	}
	if strings.TrimSpace(override.OpenAIAPIKey) != "" {
		base.OpenAIAPIKey = strings.TrimSpace(override.OpenAIAPIKey)
	}
	if override.TimeoutSec > 0 {
		base.TimeoutSec = override.TimeoutSec
	}
	if override.MinConfidence > 0 && override.MinConfidence <= 1 {
		base.MinConfidence = override.MinConfidence
	}
	return base
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.PhotosDir) == "" {
		return errors.New("PHOTOS_DIR is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == "" {
		return errors.New("HTTP_PORT is required")
	}
	switch cfg.Provider {
	case "azure", "openai":
	default:
		return fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
	if cfg.Vision.MinConfidence < 0 || cfg.Vision.MinConfidence > 1 {
		return fmt.Errorf("vision min_confidence must be within [0,1] (got %g)", cfg.Vision.MinConfidence)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseFloatEnv(key string) (float64, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, true, err
}
