package tui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"

	"github.com/chaos-io/cleanlens/clean"
	"github.com/chaos-io/cleanlens/compare"
)

const compareZoneID = "compare"

// chromeLines 标题、标签、状态栏和帮助占用的行数
const chromeLines = 6

// Bounds 返回对比区域在终端里的字符格矩形
type Bounds func() (image.Rectangle, bool)

// App 终端查看器
type App struct {
	ctx       context.Context
	orch      *clean.Orchestrator
	exportDir string
	zone      *zone.Manager
	bounds    Bounds
	copy      func(string) error

	bus    *compare.Bus
	widget *compare.Widget

	width  int
	height int
	input  string
	status string
	frame  int

	lastExport string
	pending    string

	// 按终端尺寸缩小后的对比图
	thumbs     [2]image.Image
	thumbBox   image.Point
	preview    image.Image
	previewFor string
}

type Option func(*App)

func WithZone(z *zone.Manager) Option {
	return func(a *App) {
		a.zone = z
	}
}

// WithBounds 替换对比区域的定位方式，测试时使用
func WithBounds(b Bounds) Option {
	return func(a *App) {
		a.bounds = b
	}
}

func WithClipboard(fn func(string) error) Option {
	return func(a *App) {
		a.copy = fn
	}
}

func WithExportDir(dir string) Option {
	return func(a *App) {
		a.exportDir = dir
	}
}

// WithInitialPath 启动后立即加载的文件
func WithInitialPath(path string) Option {
	return func(a *App) {
		a.pending = path
	}
}

func New(ctx context.Context, orch *clean.Orchestrator, opts ...Option) *App {
	a := &App{
		ctx:       ctx,
		orch:      orch,
		exportDir: ".",
		copy:      CopyToClipboard,
		bus:       compare.NewBus(),
		width:     80,
		height:    24,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bounds == nil {
		a.bounds = a.zoneBounds
	}
	return a
}

// Run 以全屏模式运行查看器，直到用户退出
func Run(ctx context.Context, orch *clean.Orchestrator, opts ...Option) error {
	z := zone.New()
	defer z.Close()

	app := New(ctx, orch, append([]Option{WithZone(z)}, opts...)...)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	app.unmount()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type (
	loadedMsg struct {
		asset *clean.Asset
		err   error
	}
	processedMsg struct {
		state clean.State
		err   error
	}
	decodedMsg struct {
		id            string
		before, after image.Image
		err           error
	}
	exportedMsg struct {
		path string
		err  error
	}
	copiedMsg struct {
		text string
		err  error
	}
	tickMsg struct{}
)

func (a *App) Init() tea.Cmd {
	if a.pending != "" {
		path := a.pending
		a.pending = ""
		return a.loadCmd(path)
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.thumbs = [2]image.Image{}
		a.preview = nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case tea.MouseMsg:
		a.handleMouse(m)
	case loadedMsg:
		if m.err != nil {
			a.status = errorText(m.err)
			return a, nil
		}
		a.unmount()
		a.input = ""
		a.status = fmt.Sprintf("已选择 %s", m.asset.Name)
	case processedMsg:
		return a, a.handleProcessed(m)
	case decodedMsg:
		a.handleDecoded(m)
	case exportedMsg:
		if m.err != nil {
			a.status = errorText(m.err)
			return a, nil
		}
		a.lastExport = m.path
		a.status = "已导出 " + m.path + "（y 复制路径）"
	case copiedMsg:
		if m.err != nil {
			a.status = "复制失败: " + m.err.Error()
			return a, nil
		}
		a.status = "已复制 " + m.text
	case tickMsg:
		if a.orch.State().Status() == clean.StatusProcessing {
			a.frame++
			return a, tick()
		}
	}
	return a, nil
}

func (a *App) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c":
		return a.quit()
	case "tab":
		return a.switchMode()
	}

	st := a.orch.State()
	if st.Status() == clean.StatusIdle {
		return a.handleIdleKey(k, st)
	}

	switch k.String() {
	case "q", "esc":
		return a.quit()
	case "r":
		a.reset()
	case "enter":
		if st.Status() == clean.StatusError {
			return a, a.processCmd()
		}
	case "d":
		if st.Status() == clean.StatusSuccess {
			return a, a.exportCmd()
		}
	case "y":
		if a.lastExport != "" {
			return a, a.copyCmd(a.lastExport)
		}
		a.status = "还没有导出文件，先按 d 导出"
	}
	return a, nil
}

// handleIdleKey 空闲时输入框接收所有可打印字符
func (a *App) handleIdleKey(k tea.KeyMsg, st clean.State) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		if a.input == "" {
			return a.quit()
		}
		a.input = ""
	case tea.KeyBackspace:
		if r := []rune(a.input); len(r) > 0 {
			a.input = string(r[:len(r)-1])
		}
	case tea.KeyCtrlR:
		a.reset()
	case tea.KeyEnter:
		if path := strings.TrimSpace(a.input); path != "" {
			a.status = "正在读取 " + path
			return a, a.loadCmd(path)
		}
		if st.Original() != nil {
			return a, a.processCmd()
		}
		a.status = "请输入文件路径或 URL"
	case tea.KeyRunes, tea.KeySpace:
		a.input += string(k.Runes)
		if k.Type == tea.KeySpace && len(k.Runes) == 0 {
			a.input += " "
		}
	}
	return a, nil
}

func (a *App) handleMouse(m tea.MouseMsg) {
	x := float64(m.X) + 0.5
	y := float64(m.Y) + 0.5

	switch m.Action {
	case tea.MouseActionPress:
		if m.Button != tea.MouseButtonLeft {
			return
		}
		if a.widget != nil {
			if r, ok := a.bounds(); ok && image.Pt(m.X, m.Y).In(r) && a.widget.HitHandle(x) {
				a.widget.PressHandle()
			}
		}
		a.bus.Dispatch(compare.Event{Kind: compare.PointerDown, X: x, Y: y})
	case tea.MouseActionMotion:
		a.bus.Dispatch(compare.Event{Kind: compare.PointerMove, X: x, Y: y})
	case tea.MouseActionRelease:
		a.bus.Dispatch(compare.Event{Kind: compare.PointerUp, X: x, Y: y})
	}
}

func (a *App) handleProcessed(m processedMsg) tea.Cmd {
	if errors.Is(m.err, clean.ErrDiscarded) || errors.Is(m.err, clean.ErrBusy) || errors.Is(m.err, clean.ErrNoFile) {
		a.status = errorText(m.err)
		return nil
	}
	s, ok := m.state.(clean.Succeeded)
	if !ok {
		a.status = ""
		return nil
	}
	a.status = "处理完成，拖动分割线查看对比"
	return decodeCmd(s)
}

func (a *App) handleDecoded(m decodedMsg) {
	s, ok := a.orch.State().(clean.Succeeded)
	if !ok || s.Processed().ID != m.id {
		return
	}
	if m.err != nil {
		a.status = errorText(m.err)
		return
	}

	a.unmount()
	a.widget = compare.NewWidget(m.before, m.after, compare.WithHandleSlop(1))
	if err := a.widget.Mount(a.bus, compare.LayoutFunc(a.container)); err != nil {
		log.Error().Err(err).Msg("mount compare widget")
	}
}

// container 把对比区域的字符格换算成 Widget 需要的左边界和宽度
func (a *App) container() (float64, float64) {
	r, ok := a.bounds()
	if !ok {
		return 0, 0
	}
	return float64(r.Min.X), float64(r.Dx())
}

func (a *App) zoneBounds() (image.Rectangle, bool) {
	if a.zone == nil {
		return image.Rectangle{}, false
	}
	z := a.zone.Get(compareZoneID)
	if z == nil || z.IsZero() {
		return image.Rectangle{}, false
	}
	return image.Rect(z.StartX, z.StartY, z.EndX+1, z.EndY+1), true
}

func (a *App) unmount() {
	if a.widget != nil {
		a.widget.Unmount()
		a.widget = nil
	}
	a.thumbs = [2]image.Image{}
}

func (a *App) reset() {
	a.unmount()
	a.orch.Reset()
	a.input = ""
	a.lastExport = ""
	a.status = ""
}

func (a *App) switchMode() (tea.Model, tea.Cmd) {
	a.unmount()
	next := clean.Video
	if a.orch.Mode() == clean.Video {
		next = clean.Photo
	}
	a.orch.SwitchMode(next)
	a.input = ""
	a.lastExport = ""
	a.status = ""
	return a, nil
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.unmount()
	return a, tea.Quit
}

func (a *App) loadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		u, err := clean.UploadFromPath(path)
		if err != nil {
			return loadedMsg{err: err}
		}
		asset, err := a.orch.Select(u)
		return loadedMsg{asset: asset, err: err}
	}
}

func (a *App) processCmd() tea.Cmd {
	a.frame = 0
	return tea.Batch(tick(), func() tea.Msg {
		s, err := a.orch.Process(a.ctx)
		return processedMsg{state: s, err: err}
	})
}

func (a *App) exportCmd() tea.Cmd {
	return func() tea.Msg {
		path, err := a.orch.Export(a.exportDir)
		return exportedMsg{path: path, err: err}
	}
}

func (a *App) copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{text: text, err: a.copy(text)}
	}
}

func decodeCmd(s clean.Succeeded) tea.Cmd {
	return func() tea.Msg {
		before, err := s.Original().Decode()
		if err != nil {
			return decodedMsg{id: s.Processed().ID, err: err}
		}
		after, err := s.Processed().Decode()
		return decodedMsg{id: s.Processed().ID, before: before, after: after, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// thumbnails 按终端像素尺寸缩小两张图，尺寸不变时复用
func (a *App) thumbnails(box image.Point) (image.Image, image.Image) {
	if a.thumbs[0] != nil && a.thumbBox == box {
		return a.thumbs[0], a.thumbs[1]
	}
	a.thumbBox = box
	a.thumbs[0] = resize.Thumbnail(uint(box.X), uint(box.Y), a.widget.Before(), resize.Bilinear)
	a.thumbs[1] = resize.Thumbnail(uint(box.X), uint(box.Y), a.widget.After(), resize.Bilinear)
	return a.thumbs[0], a.thumbs[1]
}

func errorText(err error) string {
	var verr *clean.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return "错误: " + err.Error()
}
