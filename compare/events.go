package compare

import "sync"

// EventKind 指针事件类型，鼠标和触摸分开
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	TouchStart
	TouchMove
	TouchEnd
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "pointerdown"
	case PointerMove:
		return "pointermove"
	case PointerUp:
		return "pointerup"
	case TouchStart:
		return "touchstart"
	case TouchMove:
		return "touchmove"
	case TouchEnd:
		return "touchend"
	default:
		return "unknown"
	}
}

// Event 宿主坐标系下的一次指针事件，触摸事件取第一个触点
type Event struct {
	Kind EventKind
	X    float64
	Y    float64
}

type Listener func(Event)

// Bus 宿主范围的事件分发器，相当于浏览器里的 window
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[EventKind][]entry
}

type entry struct {
	id uint64
	fn Listener
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[EventKind][]entry)}
}

// Subscribe 注册监听，返回的 Subscription 可以多次取消，只生效一次
func (b *Bus) Subscribe(kind EventKind, fn Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[kind] = append(b.listeners[kind], entry{id: b.nextID, fn: fn})
	return &Subscription{bus: b, kind: kind, id: b.nextID}
}

// Dispatch 按注册顺序同步投递给该类型的监听者
// 监听者在锁外调用，回调里可以再订阅或取消订阅
func (b *Bus) Dispatch(ev Event) {
	b.mu.Lock()
	snapshot := make([]entry, len(b.listeners[ev.Kind]))
	copy(snapshot, b.listeners[ev.Kind])
	b.mu.Unlock()

	for _, e := range snapshot {
		e.fn(ev)
	}
}

// Len 当前存活的监听者数量
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, l := range b.listeners {
		n += len(l)
	}
	return n
}

func (b *Bus) remove(kind EventKind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l := b.listeners[kind]
	for i, e := range l {
		if e.id == id {
			b.listeners[kind] = append(l[:i:i], l[i+1:]...)
			break
		}
	}
	if len(b.listeners[kind]) == 0 {
		delete(b.listeners, kind)
	}
}

type Subscription struct {
	bus  *Bus
	kind EventKind
	id   uint64
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.kind, s.id)
	})
}
