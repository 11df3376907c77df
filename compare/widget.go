package compare

import (
	"errors"
	"image"
	"math"
	"sync"
)

var (
	ErrMounted   = errors.New("widget already mounted")
	ErrUnmounted = errors.New("widget already unmounted")
)

// Host 提供全局指针事件的宿主
type Host interface {
	Subscribe(kind EventKind, fn Listener) *Subscription
}

// Layout 返回容器在宿主坐标系下的左边界和宽度，每次移动时重新读取
type Layout interface {
	Container() (left, width float64)
}

type LayoutFunc func() (left, width float64)

func (f LayoutFunc) Container() (float64, float64) {
	return f()
}

// Fixed 固定位置的容器
func Fixed(left, width float64) Layout {
	return LayoutFunc(func() (float64, float64) {
		return left, width
	})
}

type Option func(*Widget)

// WithHandleSlop 把手命中的容差（宿主坐标单位）
func WithHandleSlop(slop float64) Option {
	return func(w *Widget) {
		if slop >= 0 {
			w.slop = slop
		}
	}
}

// WithOnChange 位置变化回调，在锁外调用
func WithOnChange(fn func(pos float64)) Option {
	return func(w *Widget) {
		w.onChange = fn
	}
}

// Widget 前后对比组件，只持有交互状态
type Widget struct {
	before image.Image
	after  image.Image

	slop     float64
	onChange func(pos float64)

	mu        sync.Mutex
	slider    *Slider
	layout    Layout
	subs      []*Subscription
	mounted   bool
	unmounted bool
}

// NewWidget 为一组新图片创建组件，位置从 50 开始
func NewWidget(before, after image.Image, opts ...Option) *Widget {
	w := &Widget{
		before: before,
		after:  after,
		slop:   1,
		slider: NewSlider(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Widget) Before() image.Image {
	return w.before
}

func (w *Widget) After() image.Image {
	return w.after
}

// Mount 在宿主上注册移动和松开的全局监听
func (w *Widget) Mount(host Host, layout Layout) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.unmounted {
		return ErrUnmounted
	}
	if w.mounted {
		return ErrMounted
	}

	w.layout = layout
	w.subs = []*Subscription{
		host.Subscribe(PointerMove, w.handleMove),
		host.Subscribe(TouchMove, w.handleMove),
		host.Subscribe(PointerUp, w.handleRelease),
		host.Subscribe(TouchEnd, w.handleRelease),
	}
	w.mounted = true
	return nil
}

// Unmount 取消全部监听，重复调用无效果
// 拖动中卸载同样会取消监听，之后不再有任何状态变化
func (w *Widget) Unmount() {
	w.mu.Lock()
	if !w.mounted || w.unmounted {
		w.mu.Unlock()
		return
	}
	w.unmounted = true
	subs := w.subs
	w.subs = nil
	w.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

// PressHandle 在把手上按下（鼠标或触摸），开始拖动
func (w *Widget) PressHandle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.live() {
		return false
	}
	return w.slider.Press()
}

// HitHandle 判断宿主坐标 x 是否落在把手上
func (w *Widget) HitHandle(x float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.live() {
		return false
	}
	left, width := w.layout.Container()
	if !(width > 0) {
		return false
	}
	handleX := left + width*w.slider.Position()/100
	return math.Abs(x-handleX) <= w.slop
}

func (w *Widget) Position() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slider.Position()
}

func (w *Widget) Dragging() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slider.Phase() == Dragging
}

func (w *Widget) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.live()
}

func (w *Widget) live() bool {
	return w.mounted && !w.unmounted
}

func (w *Widget) handleMove(ev Event) {
	w.mu.Lock()
	if !w.live() {
		w.mu.Unlock()
		return
	}
	left, width := w.layout.Container()
	changed := w.slider.Move(ev.X, left, width)
	pos := w.slider.Position()
	onChange := w.onChange
	w.mu.Unlock()

	if changed && onChange != nil {
		onChange(pos)
	}
}

func (w *Widget) handleRelease(Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.live() {
		return
	}
	w.slider.Release()
}
