package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/chaos-io/cleanlens/compare"
)

// 终端里的像素很粗，把手画细一些
var termRenderer = compare.Renderer{
	Scaler:      draw.ApproxBiLinear,
	Background:  color.Black,
	HandleColor: color.White,
	KnobRadius:  1.5,
	LineWidth:   1,
}

// pixelBox 终端区域对应的像素尺寸，每个字符格上下两个像素
func pixelBox(cols, rows int) image.Point {
	return image.Pt(max(cols, 1), max(rows, 1)*2)
}

// halfBlocks 用 "▀" 画图：上半格前景色，下半格背景色
func halfBlocks(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := hexColor(img.At(x, y))
			bottom := top
			if y+1 < b.Max.Y {
				bottom = hexColor(img.At(x, y+1))
			}
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
	}
	return sb.String()
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
