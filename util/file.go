package util

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
)

// Download 下载文件，返回内容和服务端声明的 Content-Type
func Download(url string) ([]byte, string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, MediaType(resp.Header.Get("Content-Type")), nil
}

// ReadFile 读取本地文件，按扩展名给出声明类型（和浏览器文件选择器的行为一致）
func ReadFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, MediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))), nil
}

// DecodeImage 解码内存中的图片，支持 png / jpeg / gif / webp
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}
	return image.Decode(bytes.NewReader(data))
}

// EncodeImage 按 mimeType 编码图片，返回实际使用的类型
// 没有编码器的格式（webp / gif 等）统一输出 png
func EncodeImage(w io.Writer, img image.Image, mimeType string) (string, error) {
	switch MediaType(mimeType) {
	case "image/jpeg", "image/jpg":
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 95}); err != nil {
			return "", fmt.Errorf("encode jpeg: %w", err)
		}
		return "image/jpeg", nil
	default:
		if err := png.Encode(w, img); err != nil {
			return "", fmt.Errorf("encode png: %w", err)
		}
		return "image/png", nil
	}
}

// ExtensionFor 下载文件名使用的扩展名
func ExtensionFor(mimeType string) string {
	switch MediaType(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".png"
	}
}

// MediaType 去掉参数部分并转小写，"image/PNG; charset=x" -> "image/png"
func MediaType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}
