package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/cleanlens/clean"
	"github.com/chaos-io/cleanlens/compare"
)

const maxRenderEdge = 4096

type assetView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

type stateView struct {
	Status    clean.Status `json:"status"`
	Mode      string       `json:"mode"`
	Editor    string       `json:"editor"`
	Message   string       `json:"message,omitempty"`
	Original  *assetView   `json:"original,omitempty"`
	Processed *assetView   `json:"processed,omitempty"`
}

func newAssetView(a *clean.Asset) *assetView {
	if a == nil {
		return nil
	}
	return &assetView{
		ID:       a.ID,
		Name:     a.Name,
		MimeType: a.MimeType,
		Size:     a.Size(),
		Width:    a.Width,
		Height:   a.Height,
	}
}

func (s *Server) view() stateView {
	st := s.orch.State()
	v := stateView{
		Status:   st.Status(),
		Mode:     s.orch.Mode().String(),
		Editor:   s.orch.EditorName(),
		Original: newAssetView(st.Original()),
	}
	switch st := st.(type) {
	case clean.Succeeded:
		v.Processed = newAssetView(st.Processed())
	case clean.Failed:
		v.Message = st.Message()
	}
	return v
}

func (s *Server) page(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", pageHTML)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getState(c *gin.Context) {
	OK(c, s.view())
}

func (s *Server) reset(c *gin.Context) {
	s.orch.Reset()
	s.images.clear()
	OK(c, s.view())
}

type modeReq struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) putMode(c *gin.Context) {
	var req modeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid body, expected {\"mode\":\"photo|video\"}")
		return
	}
	mode, err := clean.ParseMode(req.Mode)
	if err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	s.orch.SwitchMode(mode)
	s.images.clear()
	OK(c, s.view())
}

func (s *Server) maxUpload() int64 {
	if s.cfg.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return s.cfg.MaxUploadMB << 20
}

func (s *Server) upload(c *gin.Context) {
	limit := s.maxUpload()
	// multipart 的边界和表头另外留 1MB
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, CodeTooLarge, fmt.Sprintf("file too large (max %dMB)", limit>>20))
			return
		}
		Error(c, http.StatusBadRequest, CodeBadRequest, "missing file (form field 'file')")
		return
	}
	if file.Size > limit {
		Error(c, http.StatusRequestEntityTooLarge, CodeTooLarge, fmt.Sprintf("file too large (max %dMB)", limit>>20))
		return
	}

	f, err := file.Open()
	if err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "failed to open uploaded file")
		return
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "failed to read uploaded file")
		return
	}

	if _, err := s.orch.Select(clean.Upload{
		Name:     file.Filename,
		MimeType: file.Header.Get("Content-Type"),
		Data:     data,
	}); err != nil {
		Fail(c, err)
		return
	}
	s.images.clear()
	OK(c, s.view())
}

func (s *Server) process(c *gin.Context) {
	s.wg.Add(1)
	err := s.orch.Start(s.ctx, func(st clean.State, err error) {
		defer s.wg.Done()
		if err != nil {
			s.logger.Debug().Err(err).Msg("background processing finished with error")
			return
		}
		s.logger.Debug().Str("status", string(st.Status())).Msg("background processing finished")
	})
	if err != nil {
		s.wg.Done()
		Fail(c, err)
		return
	}
	Accepted(c, s.view())
}

func (s *Server) originalImage(c *gin.Context) {
	a := s.orch.State().Original()
	if a == nil {
		Error(c, http.StatusNotFound, CodeNoFile, clean.ErrNoFile.Error())
		return
	}
	c.Data(http.StatusOK, a.MimeType, a.Data)
}

func (s *Server) succeeded(c *gin.Context) (clean.Succeeded, bool) {
	st, ok := s.orch.State().(clean.Succeeded)
	if !ok {
		Fail(c, clean.ErrNotReady)
	}
	return st, ok
}

func (s *Server) processedImage(c *gin.Context) {
	st, ok := s.succeeded(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, st.Processed().MimeType, st.Processed().Data)
}

func (s *Server) download(c *gin.Context) {
	st, ok := s.succeeded(c)
	if !ok {
		return
	}
	p := st.Processed()
	name := clean.DownloadName(p.MimeType, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, p.MimeType, p.Data)
}

// comparePNG 合成对比图：分割线左边是处理后的图，右边是原图
func (s *Server) comparePNG(c *gin.Context) {
	st, ok := s.succeeded(c)
	if !ok {
		return
	}

	pos := compare.DefaultPosition
	if raw := c.Query("pos"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			Error(c, http.StatusBadRequest, CodeBadRequest, "invalid pos")
			return
		}
		pos = compare.Clamp(v)
	}

	size, err := renderSize(c.Query("w"), c.Query("h"), st.Processed())
	if err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	before, err := s.images.get(st.Original())
	if err != nil {
		Fail(c, err)
		return
	}
	after, err := s.images.get(st.Processed())
	if err != nil {
		Fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, compare.Render(before, after, pos, size)); err != nil {
		Fail(c, fmt.Errorf("encode compare image: %w", err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// renderSize 解析 w / h，缺省时按处理后图片的宽高比补齐
func renderSize(rawW, rawH string, ref *clean.Asset) (image.Point, error) {
	parse := func(name, raw string) (int, error) {
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxRenderEdge {
			return 0, fmt.Errorf("invalid %s, expected 1..%d", name, maxRenderEdge)
		}
		return v, nil
	}
	w, err := parse("w", rawW)
	if err != nil {
		return image.Point{}, err
	}
	h, err := parse("h", rawH)
	if err != nil {
		return image.Point{}, err
	}

	refW, refH := ref.Width, ref.Height
	if refW <= 0 || refH <= 0 {
		refW, refH = 800, 600
	}
	switch {
	case w == 0 && h == 0:
		w, h = refW, refH
	case h == 0:
		h = max(1, w*refH/refW)
	case w == 0:
		w = max(1, h*refW/refH)
	}
	return image.Pt(min(w, maxRenderEdge), min(h, maxRenderEdge)), nil
}
