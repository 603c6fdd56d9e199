package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Raindrop   RaindropConfig   `mapstructure:"raindrop"`
	Render     RenderConfig     `mapstructure:"render"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Sync       SyncConfig       `mapstructure:"sync"`
}

type LLMConfig struct {
	Model         string `mapstructure:"model"`
	APIKey        string `mapstructure:"api_key"`
	SummaryPrompt string `mapstructure:"summary_prompt"`
}

type EmbeddingsConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

type SpeechConfig struct {
	Model  string `mapstructure:"model"`
	Voice  string `mapstructure:"voice"`
	APIKey string `mapstructure:"api_key"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type RaindropConfig struct {
	Token   string `mapstructure:"token"`
	PerPage int    `mapstructure:"per_page"`
}

// RenderConfig points at a browser rendering service used when static
// fetching yields too little content, and for screenshot covers.
type RenderConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
}

type QueueConfig struct {
	LeaseBatch  int `mapstructure:"lease_batch"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

type SyncConfig struct {
	MaxBatch int    `mapstructure:"max_batch"`
	Every    string `mapstructure:"every"`
}

func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	defaultDataDir := filepath.Join(homeDir, ".podmark")

	viper.SetDefault("data_dir", defaultDataDir)
	viper.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("speech.model", "tts-1")
	viper.SetDefault("speech.voice", "alloy")
	viper.SetDefault("storage.bucket", "podmark")
	viper.SetDefault("storage.use_ssl", false)
	viper.SetDefault("raindrop.per_page", 50)
	viper.SetDefault("queue.lease_batch", 10)
	viper.SetDefault("queue.max_attempts", 3)
	viper.SetDefault("sync.max_batch", 50)
	viper.SetDefault("sync.every", "15m")

	// Environment variable overrides
	viper.SetEnvPrefix("PODMARK")
	viper.AutomaticEnv()
	viper.BindEnv("data_dir", "PODMARK_DATA_DIR")
	viper.BindEnv("llm.model", "PODMARK_LLM_MODEL")
	viper.BindEnv("llm.api_key", "PODMARK_LLM_API_KEY", "ANTHROPIC_API_KEY")
	viper.BindEnv("embeddings.api_key", "PODMARK_EMBEDDINGS_API_KEY", "OPENAI_API_KEY")
	viper.BindEnv("speech.api_key", "PODMARK_SPEECH_API_KEY", "OPENAI_API_KEY")
	viper.BindEnv("storage.endpoint", "PODMARK_STORAGE_ENDPOINT")
	viper.BindEnv("storage.access_key", "PODMARK_STORAGE_ACCESS_KEY")
	viper.BindEnv("storage.secret_key", "PODMARK_STORAGE_SECRET_KEY")
	viper.BindEnv("raindrop.token", "PODMARK_RAINDROP_TOKEN", "RAINDROP_TOKEN")
	viper.BindEnv("render.endpoint", "PODMARK_RENDER_ENDPOINT")
	viper.BindEnv("render.token", "PODMARK_RENDER_TOKEN")

	// Config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultDataDir)

	// Read config file if exists (ignore error if not found)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "podmark.db")
}
