package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chaos-io/cleanlens/util"
)

const OpenAIModel = "gpt-image-1"

var ErrNoOpenAIImage = errors.New("no image returned from OpenAI")

type OpenAI struct {
	client *openai.Client
	model  string
	prompt string
}

func NewOpenAI(cfg Config) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	o := &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		prompt: cfg.Prompt,
	}
	if o.model == "" {
		o.model = OpenAIModel
	}
	if o.prompt == "" {
		o.prompt = DefaultPrompt
	}
	return o
}

func (o *OpenAI) Name() string {
	return ProviderOpenAI + "/" + o.model
}

// Edit 调用 images/edits，图片以临时文件的形式上传（multipart 需要文件名来判断格式）
func (o *OpenAI) Edit(ctx context.Context, img Image) (Image, error) {
	file, err := os.CreateTemp("", "cleanlens-*"+util.ExtensionFor(img.MimeType))
	if err != nil {
		return Image{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = file.Close()
		_ = os.Remove(file.Name())
	}()

	if _, err := file.Write(img.Data); err != nil {
		return Image{}, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return Image{}, fmt.Errorf("seek temp file: %w", err)
	}

	req := openai.ImageEditRequest{
		Image:  file,
		Prompt: o.prompt,
		Model:  o.model,
		N:      1,
	}
	// gpt-image 系列只返回 base64，dall-e 需要显式指定
	if o.model == openai.CreateImageModelDallE2 {
		req.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := o.client.CreateEditImage(ctx, req)
	if err != nil {
		return Image{}, fmt.Errorf("create edit image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Image{}, ErrNoOpenAIImage
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("decode b64_json: %w", err)
	}
	return Image{Data: data, MimeType: "image/png"}, nil
}
