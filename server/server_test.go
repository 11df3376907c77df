package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/cleanlens/clean"
	"github.com/chaos-io/cleanlens/clean/editor"
	"github.com/chaos-io/cleanlens/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type blockingEditor struct {
	release chan struct{}
}

func (b *blockingEditor) Name() string { return "blocking" }

func (b *blockingEditor) Edit(ctx context.Context, img editor.Image) (editor.Image, error) {
	select {
	case <-b.release:
		return img, nil
	case <-ctx.Done():
		return editor.Image{}, ctx.Err()
	}
}

func newTestServer(t *testing.T, ed editor.Editor, opts ...clean.Option) (*Server, *clean.Orchestrator) {
	t.Helper()
	opts = append([]clean.Option{clean.WithLogger(zerolog.Nop()), clean.WithVideoDelay(10 * time.Millisecond)}, opts...)
	orch := clean.New(ed, opts...)
	s, err := New(orch, config.ServerConfig{MaxUploadMB: 1, IdleTTL: time.Minute, IdleCheck: "@every 1m"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, orch
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body Body
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func uploadReq(t *testing.T, name, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func stateOf(t *testing.T, body Body) map[string]any {
	t.Helper()
	data, ok := body.Data.(map[string]any)
	require.True(t, ok, "body data is %T", body.Data)
	return data
}

func waitStatus(t *testing.T, orch *clean.Orchestrator, want clean.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return orch.State().Status() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServer_PageAndHealth(t *testing.T) {
	s, _ := newTestServer(t, editor.NewPassthrough())

	rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "去水印后")

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_PhotoFlow(t *testing.T) {
	s, orch := newTestServer(t, editor.NewPassthrough())
	data := pngBytes(t, 40, 20)

	rec, body := do(t, s, httptest.NewRequest(http.MethodPost, "/api/process", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeNoFile, body.Code)

	rec, body = do(t, s, uploadReq(t, "a.png", "", data))
	require.Equal(t, http.StatusOK, rec.Code)
	st := stateOf(t, body)
	assert.Equal(t, "idle", st["status"])
	assert.Equal(t, "image/png", st["original"].(map[string]any)["mimeType"])

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/compare.png", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, s, httptest.NewRequest(http.MethodPost, "/api/process", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	waitStatus(t, orch, clean.StatusSuccess)

	rec, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	st = stateOf(t, body)
	assert.Equal(t, "success", st["status"])
	assert.Equal(t, "passthrough", st["editor"])
	assert.NotNil(t, st["processed"])

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/images/original", nil))
	assert.Equal(t, data, rec.Body.Bytes())
	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/images/processed", nil))
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/download", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Regexp(t, regexp.MustCompile(`^attachment; filename="cleanlens_cleaned_\d+\.png"$`), rec.Header().Get("Content-Disposition"))

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/compare.png?pos=30&w=80", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(80, 40), img.Bounds().Size())
	assert.Equal(t, 2, s.images.len())

	rec, _ = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/state", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clean.StatusIdle, orch.State().Status())
	assert.Equal(t, 0, s.images.len())
}

func TestServer_CompareQueryValidation(t *testing.T) {
	s, orch := newTestServer(t, editor.NewPassthrough())
	do(t, s, uploadReq(t, "a.png", "image/png", pngBytes(t, 10, 10)))
	_, err := orch.Process(context.Background())
	require.NoError(t, err)

	for _, q := range []string{"pos=abc", "w=0", "h=-1", "w=99999"} {
		rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/compare.png?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, CodeBadRequest, body.Code, q)
	}

	rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/api/compare.png?pos=500", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_UploadValidation(t *testing.T) {
	s, orch := newTestServer(t, editor.NewPassthrough())

	rec, body := do(t, s, uploadReq(t, "clip.mp4", "video/mp4", []byte("video")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, body.Code)
	assert.Equal(t, "请上传图片文件 (JPG, PNG, WEBP)", body.Message)
	assert.Nil(t, orch.State().Original())

	rec, body = do(t, s, uploadReq(t, "big.png", "image/png", make([]byte, 3<<19)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeTooLarge, body.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	rec, _ = do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_VideoFlow(t *testing.T) {
	s, orch := newTestServer(t, editor.NewPassthrough())

	req := httptest.NewRequest(http.MethodPut, "/api/mode", bytes.NewBufferString(`{"mode":"video"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video", stateOf(t, body)["mode"])

	rec, _ = do(t, s, uploadReq(t, "clip.mp4", "video/mp4", []byte("video")))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, httptest.NewRequest(http.MethodPost, "/api/process", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitStatus(t, orch, clean.StatusError)

	_, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	assert.Equal(t, clean.VideoUnsupportedMessage, stateOf(t, body)["message"])
}

func TestServer_BadMode(t *testing.T) {
	s, _ := newTestServer(t, editor.NewPassthrough())

	for _, raw := range []string{`{"mode":"audio"}`, `{}`, `not json`} {
		req := httptest.NewRequest(http.MethodPut, "/api/mode", bytes.NewBufferString(raw))
		req.Header.Set("Content-Type", "application/json")
		rec, _ := do(t, s, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
	}
}

func TestServer_ProcessBusy(t *testing.T) {
	ed := &blockingEditor{release: make(chan struct{})}
	s, orch := newTestServer(t, ed)

	do(t, s, uploadReq(t, "a.png", "image/png", pngBytes(t, 4, 4)))
	rec, _ := do(t, s, httptest.NewRequest(http.MethodPost, "/api/process", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, clean.StatusProcessing, orch.State().Status())

	rec, body := do(t, s, httptest.NewRequest(http.MethodPost, "/api/process", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, body.Code)

	close(ed.release)
	waitStatus(t, orch, clean.StatusSuccess)
}

func TestServer_CloseCancelsBackgroundProcessing(t *testing.T) {
	ed := &blockingEditor{release: make(chan struct{})}
	s, orch := newTestServer(t, ed)

	do(t, s, uploadReq(t, "a.png", "image/png", pngBytes(t, 4, 4)))
	rec, _ := do(t, s, httptest.NewRequest(http.MethodPost, "/api/process", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	s.Close()
	assert.Equal(t, clean.StatusIdle, orch.State().Status())
	assert.NotNil(t, orch.State().Original())
}

func TestServer_ResetIdle(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, orch := newTestServer(t, editor.NewPassthrough(), clean.WithClock(func() time.Time { return now }))

	do(t, s, uploadReq(t, "a.png", "image/png", pngBytes(t, 4, 4)))
	_, err := orch.Process(context.Background())
	require.NoError(t, err)
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/compare.png", nil))
	require.Equal(t, 2, s.images.len())

	s.resetIdle()
	assert.Equal(t, clean.StatusSuccess, orch.State().Status())

	now = now.Add(2 * time.Minute)
	s.resetIdle()
	assert.Equal(t, clean.StatusIdle, orch.State().Status())
	assert.Equal(t, 0, s.images.len())
}

func TestNew_InvalidIdleCheck(t *testing.T) {
	orch := clean.New(editor.NewPassthrough(), clean.WithLogger(zerolog.Nop()))
	_, err := New(orch, config.ServerConfig{IdleTTL: time.Minute, IdleCheck: "not a schedule"}, zerolog.Nop())
	assert.ErrorContains(t, err, "add idle reset job")
}

func TestRenderSize(t *testing.T) {
	ref := &clean.Asset{Width: 200, Height: 100}
	tests := []struct {
		w, h string
		want image.Point
	}{
		{want: image.Pt(200, 100)},
		{w: "100", want: image.Pt(100, 50)},
		{h: "50", want: image.Pt(100, 50)},
		{w: "30", h: "40", want: image.Pt(30, 40)},
	}
	for _, tt := range tests {
		got, err := renderSize(tt.w, tt.h, ref)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	got, err := renderSize("", "", &clean.Asset{})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(800, 600), got)
}
