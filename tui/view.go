package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"github.com/chaos-io/cleanlens/clean"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60a5fa"))
	tabActive     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#2563eb")).Padding(0, 1)
	tabInactive   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8")).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e2e8f0")).Background(lipgloss.Color("#1e293b"))
	inputStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#fbbf24"))
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

func (a *App) View() string {
	st := a.orch.State()

	var sb strings.Builder
	sb.WriteString(a.header())
	sb.WriteString("\n\n")

	switch st := st.(type) {
	case clean.Processing:
		sb.WriteString(a.processingView(st))
	case clean.Failed:
		sb.WriteString(errorStyle.Render(st.Message()))
	case clean.Succeeded:
		sb.WriteString(a.compareView())
	default:
		sb.WriteString(a.idleView(st))
	}

	sb.WriteString("\n\n")
	if a.status != "" {
		sb.WriteString(a.status)
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(help(st.Status())))

	out := sb.String()
	if a.zone != nil {
		return a.zone.Scan(out)
	}
	return out
}

func (a *App) header() string {
	photo, video := tabInactive.Render("图片"), tabInactive.Render("视频")
	if a.orch.Mode() == clean.Video {
		video = tabActive.Render("视频")
	} else {
		photo = tabActive.Render("图片")
	}
	title := titleStyle.Render("CleanLens 去水印")
	if name := a.orch.EditorName(); name != "" {
		title += helpStyle.Render("  " + name)
	}
	return title + "  " + photo + " " + video
}

func (a *App) idleView(st clean.State) string {
	hint := "支持 JPG, PNG, WEBP"
	if a.orch.Mode() == clean.Video {
		hint = "支持 MP4, WEBM"
	}
	prompt := "文件路径或 URL: " + inputStyle.Render(a.input+"█") + "\n" + helpStyle.Render(hint)

	original := st.Original()
	if original == nil {
		return prompt
	}

	info := fmt.Sprintf("%s  %s  %d KB", original.Name, original.MimeType, original.Size()/1024)
	if original.Width > 0 {
		info += fmt.Sprintf("  %dx%d", original.Width, original.Height)
	}
	out := prompt + "\n\n" + info
	if preview := a.previewOf(original); preview != "" {
		out += "\n" + preview
	}
	return out
}

// previewOf 空闲时显示原图的缩略图，视频或无法解码时为空
func (a *App) previewOf(asset *clean.Asset) string {
	rows := a.height - chromeLines - 4
	if rows < 2 {
		return ""
	}
	if a.previewFor != asset.ID || a.preview == nil {
		img, err := asset.Decode()
		if err != nil {
			return ""
		}
		box := pixelBox(a.width, rows)
		a.preview = resize.Thumbnail(uint(box.X), uint(box.Y), img, resize.Bilinear)
		a.previewFor = asset.ID
	}
	return halfBlocks(a.preview)
}

func (a *App) processingView(st clean.Processing) string {
	frame := spinnerFrames[a.frame%len(spinnerFrames)]
	what := "正在去除水印"
	if a.orch.Mode() == clean.Video {
		what = "正在处理视频"
	}
	return fmt.Sprintf("%s %s: %s ...", frame, what, st.Original().Name)
}

func (a *App) compareView() string {
	if a.widget == nil {
		return "正在加载对比图 ..."
	}

	rows := max(1, a.height-chromeLines-1)
	before, after := a.thumbnails(pixelBox(a.width, rows))
	size := after.Bounds().Size()
	pic := termRenderer.Render(before, after, a.widget.Position(), size)

	picture := halfBlocks(pic)
	if a.zone != nil {
		picture = a.zone.Mark(compareZoneID, picture)
	}

	left, right := labelStyle.Render("去水印后"), labelStyle.Render("原图")
	gap := max(1, size.X-lipgloss.Width(left)-lipgloss.Width(right))
	labels := left + strings.Repeat(" ", gap) + right

	return labels + "\n" + picture
}

func help(s clean.Status) string {
	switch s {
	case clean.StatusProcessing:
		return "tab 切换模式 · ctrl+c 退出"
	case clean.StatusError:
		return "enter 重试 · r 重新开始 · tab 切换模式 · q 退出"
	case clean.StatusSuccess:
		return "拖动分割线对比 · d 导出 · y 复制路径 · r 重新开始 · tab 切换模式 · q 退出"
	default:
		return "enter 读取/开始处理 · tab 切换模式 · ctrl+r 重新开始 · esc 退出"
	}
}
