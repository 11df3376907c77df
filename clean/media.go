package clean

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/cleanlens/util"
)

// Mode 当前的标签页
type Mode int

const (
	Photo Mode = iota
	Video
)

func (m Mode) String() string {
	if m == Video {
		return "video"
	}
	return "photo"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "photo", "image", "":
		return Photo, nil
	case "video":
		return Video, nil
	default:
		return Photo, fmt.Errorf("unknown mode %q", s)
	}
}

// Accepts 只看声明类型的大类：photo 接受 image/*，video 接受 video/*
func (m Mode) Accepts(mimeType string) bool {
	mimeType = util.MediaType(mimeType)
	if m == Video {
		return strings.HasPrefix(mimeType, "video/")
	}
	return strings.HasPrefix(mimeType, "image/")
}

// Upload 用户选中的文件
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// Asset 编排器持有的一张图片（或视频）
type Asset struct {
	ID       string
	Name     string
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

func newAsset(name, mimeType string, data []byte) *Asset {
	a := &Asset{
		ID:       ksuid.New().String(),
		Name:     name,
		MimeType: mimeType,
		Data:     data,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		a.Width, a.Height = cfg.Width, cfg.Height
	}
	return a
}

func (a *Asset) Size() int {
	return len(a.Data)
}

func (a *Asset) Decode() (image.Image, error) {
	img, _, err := util.DecodeImage(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.Name, err)
	}
	return img, nil
}

// sniff 声明类型为空或 application/octet-stream 时根据内容判断
func sniff(declared string, data []byte) string {
	declared = util.MediaType(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return util.MediaType(mimetype.Detect(data).String())
}

// DownloadName 导出文件名 cleanlens_cleaned_<毫秒时间戳>.<ext>
func DownloadName(mimeType string, t time.Time) string {
	return fmt.Sprintf("cleanlens_cleaned_%d%s", t.UnixMilli(), util.ExtensionFor(mimeType))
}
