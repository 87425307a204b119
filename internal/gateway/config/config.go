package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	llmclient "mindmapgen/internal/llmClient"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	Provider        llmclient.Provider
	GeminiAPIKey    string
	GenerationModel string
	EmbeddingModel  string

	EmbedTimeout      time.Duration
	GenerationTimeout time.Duration
	GenerationRPS     float64
	GenerationBurst   int
	RetrievalTopK     int
	ChunkSize         int
	ChunkOverlap      int
	RepairJSON        bool

	Breaker     BreakerConfig
	Diagnostics DiagnosticsConfig
}

type BreakerConfig struct {
	Enabled      bool
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DiagnosticsConfig points at the S3-compatible bucket that receives failed
// generations.
type DiagnosticsConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env, then the optional config file (explicit path, or
// mindmap.yaml in the working directory), then the environment. Environment
// variables win.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mindmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	env := strings.TrimSpace(v.GetString("app_env"))
	if env == "" {
		env = "local"
	}
	if isLocal(env) {
		localDefaults(v)
	}

	cfg := &Config{
		Port:     normalizePort(v.GetString("port")),
		Env:      env,
		LogLevel: strings.TrimSpace(v.GetString("log_level")),

		Provider:        llmclient.Provider(strings.ToLower(strings.TrimSpace(v.GetString("llm_provider")))),
		GeminiAPIKey:    strings.TrimSpace(v.GetString("gemini_api_key")),
		GenerationModel: strings.TrimSpace(v.GetString("generation_model")),
		EmbeddingModel:  strings.TrimSpace(v.GetString("embedding_model")),

		EmbedTimeout:      v.GetDuration("embed_timeout"),
		GenerationTimeout: v.GetDuration("generation_timeout"),
		GenerationRPS:     v.GetFloat64("generation_rps"),
		GenerationBurst:   v.GetInt("generation_burst"),
		RetrievalTopK:     v.GetInt("retrieval_top_k"),
		ChunkSize:         v.GetInt("chunk_size"),
		ChunkOverlap:      v.GetInt("chunk_overlap"),
		RepairJSON:        v.GetBool("parse_repair_json"),

		Breaker: BreakerConfig{
			Enabled:      v.GetBool("breaker_enabled"),
			Timeout:      v.GetDuration("breaker_timeout"),
			MinRequests:  v.GetUint32("breaker_min_requests"),
			FailureRatio: v.GetFloat64("breaker_failure_ratio"),
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:   v.GetBool("diagnostics_enabled"),
			Endpoint:  strings.TrimSpace(v.GetString("diagnostics_s3_endpoint")),
			Region:    strings.TrimSpace(v.GetString("diagnostics_s3_region")),
			AccessKey: firstNonEmpty(v.GetString("diagnostics_s3_access_key"), v.GetString("minio_root_user")),
			SecretKey: firstNonEmpty(v.GetString("diagnostics_s3_secret_key"), v.GetString("minio_root_password")),
			Bucket:    strings.TrimSpace(v.GetString("diagnostics_s3_bucket")),
			UseSSL:    v.GetBool("diagnostics_s3_use_ssl"),
		},
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8081")
	v.SetDefault("log_level", "info")
	v.SetDefault("llm_provider", string(llmclient.ProviderGemini))
	v.SetDefault("generation_model", llmclient.DefaultGenerationModel)
	v.SetDefault("embedding_model", llmclient.DefaultEmbeddingModel)
	v.SetDefault("embed_timeout", time.Duration(0))
	v.SetDefault("generation_timeout", time.Duration(0))
	v.SetDefault("generation_rps", 0.0)
	v.SetDefault("generation_burst", 1)
	v.SetDefault("retrieval_top_k", 4)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("parse_repair_json", false)
	v.SetDefault("breaker_enabled", true)
	v.SetDefault("breaker_timeout", 30*time.Second)
	v.SetDefault("breaker_min_requests", 5)
	v.SetDefault("breaker_failure_ratio", 0.8)
	v.SetDefault("diagnostics_enabled", false)
	v.SetDefault("diagnostics_s3_region", "us-east-1")
	v.SetDefault("diagnostics_s3_bucket", "mindmap-diagnostics")
	v.SetDefault("diagnostics_s3_use_ssl", true)
	// Keys without a default are only seen by AutomaticEnv once bound.
	for _, key := range []string{
		"app_env", "gemini_api_key", "diagnostics_s3_endpoint",
		"diagnostics_s3_access_key", "diagnostics_s3_secret_key",
		"minio_root_user", "minio_root_password",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case llmclient.ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case llmclient.ProviderFake:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.RetrievalTopK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK))
	}
	if c.EmbedTimeout < 0 || c.GenerationTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.GenerationRPS < 0 {
		errs = append(errs, fmt.Errorf("GENERATION_RPS must not be negative, got %g", c.GenerationRPS))
	}
	if c.Diagnostics.Enabled && c.Diagnostics.Endpoint == "" {
		errs = append(errs, errors.New("DIAGNOSTICS_S3_ENDPOINT is required when diagnostics are enabled"))
	}
	return errors.Join(errs...)
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, ":") {
		return p
	}
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
