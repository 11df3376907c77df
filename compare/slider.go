package compare

import "math"

const (
	MinPosition     = 0.0
	MaxPosition     = 100.0
	DefaultPosition = 50.0
)

// Phase 拖动状态
type Phase int

const (
	Idle Phase = iota
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Dragging:
		return "DRAGGING"
	default:
		return "UNKNOWN"
	}
}

// Slider 分割线的状态机，本身不加锁，由 Widget 负责并发保护
type Slider struct {
	phase    Phase
	position float64
}

func NewSlider() *Slider {
	return &Slider{phase: Idle, position: DefaultPosition}
}

func (s *Slider) Position() float64 {
	return s.position
}

func (s *Slider) Phase() Phase {
	return s.phase
}

// Press 按下把手，IDLE -> DRAGGING
func (s *Slider) Press() bool {
	if s.phase == Dragging {
		return false
	}
	s.phase = Dragging
	return true
}

// Release 在任意位置松开，DRAGGING -> IDLE
func (s *Slider) Release() bool {
	if s.phase == Idle {
		return false
	}
	s.phase = Idle
	return true
}

// Move 只在 DRAGGING 时更新位置，返回位置是否变化
func (s *Slider) Move(pointerX, containerLeft, containerWidth float64) bool {
	if s.phase != Dragging {
		return false
	}
	pos, ok := PositionAt(pointerX, containerLeft, containerWidth)
	if !ok || pos == s.position {
		return false
	}
	s.position = pos
	return true
}

// PositionAt 把指针横坐标换算成百分比
// 容器宽度不大于 0 时无法换算，ok 为 false
func PositionAt(pointerX, containerLeft, containerWidth float64) (float64, bool) {
	if !(containerWidth > 0) || math.IsNaN(pointerX) || math.IsNaN(containerLeft) {
		return 0, false
	}
	return Clamp((pointerX - containerLeft) / containerWidth * 100), true
}

// Clamp 把位置限制在 [0, 100]，NaN 视为默认位置
func Clamp(pos float64) float64 {
	switch {
	case math.IsNaN(pos):
		return DefaultPosition
	case pos < MinPosition:
		return MinPosition
	case pos > MaxPosition:
		return MaxPosition
	default:
		return pos
	}
}
