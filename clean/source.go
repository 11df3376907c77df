package clean

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/chaos-io/cleanlens/util"
)

// UploadFromPath 从本地路径或 http(s) 地址读取文件
func UploadFromPath(ref string) (Upload, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Upload{}, ErrNoFile
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, mimeType, err := util.Download(ref)
		if err != nil {
			return Upload{}, fmt.Errorf("download %s: %w", ref, err)
		}
		name := "download"
		if u, err := url.Parse(ref); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
			name = path.Base(u.Path)
		}
		return Upload{Name: name, MimeType: mimeType, Data: data}, nil
	}

	data, mimeType, err := util.ReadFile(ref)
	if err != nil {
		return Upload{}, fmt.Errorf("read %s: %w", ref, err)
	}
	return Upload{Name: filepath.Base(ref), MimeType: mimeType, Data: data}, nil
}
