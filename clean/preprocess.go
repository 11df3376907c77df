package clean

import (
	"bytes"
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/chaos-io/cleanlens/clean/editor"
	"github.com/chaos-io/cleanlens/util"
)

// 编辑服务直接接受的格式，其余格式转成 png
var passthroughTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// normalize 把要上传的图片变成
//
//	最长边 <= maxEdge（maxEdge <= 0 时不缩放）
//	格式为 png / jpeg / webp
//
// 无法解码时原样上传，由编辑服务决定能否处理
func normalize(a *Asset, maxEdge int) (editor.Image, bool, error) {
	mimeType := util.MediaType(a.MimeType)
	raw := editor.Image{Data: a.Data, MimeType: mimeType}

	img, _, err := util.DecodeImage(a.Data)
	if err != nil {
		return raw, false, nil
	}

	resized := resizeWithinMax(img, maxEdge)
	if resized == img && passthroughTypes[mimeType] {
		return raw, false, nil
	}

	var buf bytes.Buffer
	used, err := util.EncodeImage(&buf, resized, mimeType)
	if err != nil {
		return editor.Image{}, false, fmt.Errorf("normalize %s: %w", a.Name, err)
	}
	return editor.Image{Data: buf.Bytes(), MimeType: used}, true, nil
}

// resizeWithinMax 缩放（最长边 <= maxSize），不需要缩放时返回原图
func resizeWithinMax(img image.Image, maxSize int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	return resize.Resize(uint(newW), uint(newH), toNRGBA(img), resize.Lanczos3)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
