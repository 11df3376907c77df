package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/chaos-io/cleanlens/clean/editor"
)

// Config 应用配置，来源优先级：环境变量 > config.toml > 默认值
type Config struct {
	Editor  EditorConfig  `mapstructure:"editor"`
	Process ProcessConfig `mapstructure:"process"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

type EditorConfig struct {
	Provider  string        `mapstructure:"provider"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	Prompt    string        `mapstructure:"prompt"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ProcessConfig struct {
	MaxEdge    int           `mapstructure:"max_edge"`
	VideoDelay time.Duration `mapstructure:"video_delay"`
	ExportDir  string        `mapstructure:"export_dir"`
}

type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	MaxUploadMB int64         `mapstructure:"max_upload_mb"`
	IdleTTL     time.Duration `mapstructure:"idle_ttl"`
	IdleCheck   string        `mapstructure:"idle_check"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

// Load 读取 .env、配置文件和 CLEANLENS_ 前缀的环境变量
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("CLEANLENS_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "cleanlens"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CLEANLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("editor.provider", editor.ProviderGemini)
	v.SetDefault("editor.api_key_env", "")
	v.SetDefault("editor.api_key", "")
	v.SetDefault("editor.model", "")
	v.SetDefault("editor.base_url", "")
	v.SetDefault("editor.prompt", editor.DefaultPrompt)
	v.SetDefault("editor.timeout", 2*time.Minute)

	v.SetDefault("process.max_edge", 2048)
	v.SetDefault("process.video_delay", 2*time.Second)
	v.SetDefault("process.export_dir", ".")

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.idle_ttl", 30*time.Minute)
	v.SetDefault("server.idle_check", "@every 1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.file", filepath.Join(os.TempDir(), "cleanlens.log"))
}

// APIKeyEnvNames 按顺序查找的环境变量名
func (c EditorConfig) APIKeyEnvNames() []string {
	var names []string
	if c.APIKeyEnv != "" {
		names = append(names, c.APIKeyEnv)
	} else {
		switch strings.ToLower(c.Provider) {
		case editor.ProviderOpenAI:
			names = append(names, "OPENAI_API_KEY")
		case "", editor.ProviderGemini:
			names = append(names, "GEMINI_API_KEY")
		}
	}
	return append(names, "API_KEY")
}

// ResolveAPIKey 依次查找：环境变量 -> 系统钥匙串 -> 配置文件
func (c EditorConfig) ResolveAPIKey() string {
	for _, name := range c.APIKeyEnvNames() {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	if key, err := LoadAPIKey(c.provider()); err == nil && key != "" {
		return key
	}
	return c.APIKey
}

// EditorConfig 转成 editor.New 需要的配置
func (c Config) EditorConfig() editor.Config {
	return editor.Config{
		Provider: c.Editor.provider(),
		APIKey:   c.Editor.ResolveAPIKey(),
		Model:    c.Editor.Model,
		BaseURL:  c.Editor.BaseURL,
		Prompt:   c.Editor.Prompt,
		Timeout:  c.Editor.Timeout,
	}
}

func (c EditorConfig) provider() string {
	if c.Provider == "" {
		return editor.ProviderGemini
	}
	return strings.ToLower(c.Provider)
}
