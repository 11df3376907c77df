package editor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  error
		wantMsg  string
	}{
		{name: "默认gemini", cfg: Config{APIKey: "k"}, wantName: "gemini/gemini-2.5-flash-image"},
		{name: "gemini缺少key", cfg: Config{Provider: "gemini"}, wantErr: ErrMissingAPIKey},
		{name: "openai", cfg: Config{Provider: "OpenAI", APIKey: "k"}, wantName: "openai/gpt-image-1"},
		{name: "openai缺少key", cfg: Config{Provider: "openai"}, wantErr: ErrMissingAPIKey},
		{name: "passthrough不需要key", cfg: Config{Provider: "passthrough"}, wantName: "passthrough"},
		{name: "未知provider", cfg: Config{Provider: "stability", APIKey: "k"}, wantMsg: `unknown editor provider "stability"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.cfg)
			if tt.wantErr != nil || tt.wantMsg != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
					assert.Contains(t, err.Error(), "API Key is missing")
				}
				if tt.wantMsg != "" {
					assert.EqualError(t, err, tt.wantMsg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name())
		})
	}
}

func TestPassthrough_Edit(t *testing.T) {
	p := NewPassthrough()
	in := Image{Data: []byte("abc"), MimeType: "image/png"}

	got, err := p.Edit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// 返回的是拷贝
	got.Data[0] = 'z'
	assert.Equal(t, byte('a'), in.Data[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Edit(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAI_Edit(t *testing.T) {
	cleaned := []byte("cleaned")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/edits", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, DefaultPrompt, r.FormValue("prompt"))

		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("original"), data)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(cleaned)}},
		})
	}))
	defer server.Close()

	o := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL})
	got, err := o.Edit(context.Background(), Image{Data: []byte("original"), MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, cleaned, got.Data)
	assert.Equal(t, "image/png", got.MimeType)
}

func TestOpenAI_Edit_EmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	}))
	defer server.Close()

	_, err := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL}).Edit(context.Background(), Image{Data: []byte("x"), MimeType: "image/png"})
	assert.ErrorIs(t, err, ErrNoOpenAIImage)
}
