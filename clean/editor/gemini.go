package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	nhttp "github.com/chaos-io/cleanlens/util/http"
)

const (
	GeminiModel   = "gemini-2.5-flash-image"
	geminiBaseURL = "https://generativelanguage.googleapis.com/"
)

var (
	ErrNoContent = errors.New("No content returned from Gemini.")
	ErrNoImage   = errors.New("No image data found in the response.")
)

type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	prompt  string
	cli     nhttp.IClient
}

func NewGemini(cfg Config, cli nhttp.IClient) *Gemini {
	g := &Gemini{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		prompt:  cfg.Prompt,
		cli:     cli,
	}
	if g.model == "" {
		g.model = GeminiModel
	}
	if g.baseURL == "" {
		g.baseURL = geminiBaseURL
	}
	if !strings.HasSuffix(g.baseURL, "/") {
		g.baseURL += "/"
	}
	if g.prompt == "" {
		g.prompt = DefaultPrompt
	}
	return g
}

func (g *Gemini) Name() string {
	return ProviderGemini + "/" + g.model
}

type generateContentReq struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResp struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

/*
	curl "$BASE_URL/v1beta/models/gemini-2.5-flash-image:generateContent" \
	  -H "x-goog-api-key: $GEMINI_API_KEY" \
	  -H "Content-Type: application/json" \
	  -d '{"contents":[{"parts":[{"inlineData":{"mimeType":"image/png","data":"..."}},{"text":"..."}]}]}'
*/
func (g *Gemini) Edit(ctx context.Context, img Image) (Image, error) {
	reqParam := &nhttp.RequestParam{
		RequestURI: g.baseURL + "v1beta/models/" + g.model + ":generateContent",
		Method:     http.MethodPost,
		Header:     map[string]string{"x-goog-api-key": g.apiKey},
		Body: &generateContentReq{
			Contents: []geminiContent{{
				Role: "user",
				Parts: []geminiPart{
					{InlineData: &inlineData{MimeType: img.MimeType, Data: base64.StdEncoding.EncodeToString(img.Data)}},
					{Text: g.prompt},
				},
			}},
			GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE"}},
		},
		Response: &generateContentResp{},
	}
	if err := g.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return Image{}, fmt.Errorf("generate content: %w", err)
	}

	resp := reqParam.Response.(*generateContentResp)
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		log.Warn().Str("blockReason", resp.PromptFeedback.BlockReason).Msg("gemini blocked the prompt")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Image{}, ErrNoContent
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return Image{}, fmt.Errorf("decode inline data: %w", err)
		}
		mimeType := part.InlineData.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return Image{Data: data, MimeType: mimeType}, nil
	}

	log.Debug().Str("finishReason", resp.Candidates[0].FinishReason).Msg("gemini returned no image part")
	return Image{}, ErrNoImage
}
