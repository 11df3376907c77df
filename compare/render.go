package compare

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Renderer 合成前后对比图
//
//	before 铺满整个容器作为底图
//	after 裁剪到 [0, position%] 覆盖在上面
//	把手画在 position% 处，贯穿整个高度，中间一个圆形按钮
type Renderer struct {
	Scaler      draw.Scaler
	Background  color.Color
	HandleColor color.Color
	ArrowColor  color.Color
	KnobRadius  float64
	LineWidth   float64
}

var DefaultRenderer = Renderer{
	Scaler:      draw.CatmullRom,
	Background:  color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff},
	HandleColor: color.White,
	ArrowColor:  color.RGBA{R: 0x4b, G: 0x55, B: 0x63, A: 0xff},
	KnobRadius:  14,
	LineWidth:   3,
}

// Render 用默认样式合成
func Render(before, after image.Image, position float64, size image.Point) *image.RGBA {
	return DefaultRenderer.Render(before, after, position, size)
}

func (r Renderer) Render(before, after image.Image, position float64, size image.Point) *image.RGBA {
	if size.X <= 0 || size.Y <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	position = Clamp(position)
	bounds := image.Rect(0, 0, size.X, size.Y)

	dst := image.NewRGBA(bounds)
	if r.Background != nil {
		draw.Draw(dst, bounds, image.NewUniform(r.Background), image.Point{}, draw.Src)
	}
	r.scaleInto(dst, before)

	clipX := int(math.Round(float64(size.X) * position / 100))
	if after != nil && clipX > 0 {
		layer := image.NewRGBA(bounds)
		r.scaleInto(layer, after)
		clip := image.Rect(0, 0, clipX, size.Y)
		draw.Draw(dst, clip, layer, clip.Min, draw.Over)
	}

	r.drawHandle(dst, float64(size.X)*position/100)
	return dst
}

func (r Renderer) scaleInto(dst *image.RGBA, src image.Image) {
	if src == nil {
		return
	}
	rect := Contain(src.Bounds().Size(), dst.Bounds().Size())
	if rect.Empty() {
		return
	}
	scaler := r.Scaler
	if scaler == nil {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, rect, src, src.Bounds(), draw.Over, nil)
}

func (r Renderer) drawHandle(dst *image.RGBA, x float64) {
	if r.HandleColor == nil {
		return
	}
	h := float64(dst.Bounds().Dy())
	dc := gg.NewContextForRGBA(dst)

	if r.LineWidth > 0 {
		dc.SetColor(r.HandleColor)
		dc.SetLineWidth(r.LineWidth)
		dc.DrawLine(x, 0, x, h)
		dc.Stroke()
	}

	radius := r.KnobRadius
	if radius <= 0 {
		return
	}
	cy := h / 2
	dc.SetColor(r.HandleColor)
	dc.DrawCircle(x, cy, radius)
	dc.Fill()

	if r.ArrowColor == nil {
		return
	}
	// 左右两个小三角
	a := radius * 0.35
	gap := radius * 0.15
	dc.SetColor(r.ArrowColor)
	dc.MoveTo(x-gap, cy-a)
	dc.LineTo(x-gap-a, cy)
	dc.LineTo(x-gap, cy+a)
	dc.ClosePath()
	dc.MoveTo(x+gap, cy-a)
	dc.LineTo(x+gap+a, cy)
	dc.LineTo(x+gap, cy+a)
	dc.ClosePath()
	dc.Fill()
}

// Contain 等比缩放 src 放进 box 并居中（object-fit: contain）
func Contain(src, box image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || box.X <= 0 || box.Y <= 0 {
		return image.Rectangle{}
	}
	scale := math.Min(float64(box.X)/float64(src.X), float64(box.Y)/float64(src.Y))
	w := max(1, int(math.Round(float64(src.X)*scale)))
	h := max(1, int(math.Round(float64(src.Y)*scale)))
	x := (box.X - w) / 2
	y := (box.Y - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
