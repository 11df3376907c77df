package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nhttp "github.com/chaos-io/cleanlens/util/http"
)

const (
	ProviderGemini      = "gemini"
	ProviderOpenAI      = "openai"
	ProviderPassthrough = "passthrough"

	// DefaultPrompt 去水印的指令
	DefaultPrompt = "Remove any watermarks, logos, text overlays, or date stamps from this image. Fill in the background seamlessly to match the surrounding area. Output only the clean image."
)

var ErrMissingAPIKey = errors.New("API Key is missing. Please set it with `cleanlens key set <provider>` or the configured environment variable")

// Image 编码后的图片
type Image struct {
	Data     []byte
	MimeType string
}

// Editor 外部的图片编辑能力，一次调用，不重试
type Editor interface {
	Name() string
	Edit(ctx context.Context, img Image) (Image, error)
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Prompt   string
	Timeout  time.Duration
}

// New 按 provider 创建 Editor
func New(cfg Config) (Editor, error) {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("new %s editor: %w", ProviderGemini, ErrMissingAPIKey)
		}
		var cli nhttp.IClient
		if cfg.Timeout > 0 {
			cli = nhttp.NewHTTPClientWithTimeout(cfg.Timeout)
		} else {
			cli = nhttp.NewHTTPClient()
		}
		return NewGemini(cfg, cli), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("new %s editor: %w", ProviderOpenAI, ErrMissingAPIKey)
		}
		return NewOpenAI(cfg), nil
	case ProviderPassthrough:
		return NewPassthrough(), nil
	default:
		return nil, fmt.Errorf("unknown editor provider %q", cfg.Provider)
	}
}
