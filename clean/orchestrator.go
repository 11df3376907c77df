package clean

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chaos-io/cleanlens/clean/editor"
	"github.com/chaos-io/cleanlens/util"
)

const (
	DefaultVideoDelay = 2 * time.Second
	DefaultMaxEdge    = 2048
)

type Option func(*Orchestrator)

// WithVideoDelay 视频模式模拟处理的时长
func WithVideoDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.videoDelay = d
		}
	}
}

// WithMaxEdge 上传前最长边的上限，0 表示不缩放
func WithMaxEdge(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxEdge = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithMode(m Mode) Option {
	return func(o *Orchestrator) {
		o.mode = m
	}
}

// Orchestrator 上传/处理流程：idle -> processing -> success / error
type Orchestrator struct {
	editor     editor.Editor
	videoDelay time.Duration
	maxEdge    int
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	mode    Mode
	state   State
	gen     uint64
	touched time.Time
}

func New(ed editor.Editor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		editor:     ed,
		videoDelay: DefaultVideoDelay,
		maxEdge:    DefaultMaxEdge,
		logger:     log.Logger,
		now:        time.Now,
		state:      Idle{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.touched = o.now()
	return o
}

func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Touched 最后一次状态变化的时间
func (o *Orchestrator) Touched() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.touched
}

func (o *Orchestrator) EditorName() string {
	if o.editor == nil {
		return ""
	}
	return o.editor.Name()
}

// SwitchMode 切换标签页，同时丢弃已选文件
func (o *Orchestrator) SwitchMode(m Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.mode = m
	o.setLocked(Idle{})
	o.logger.Debug().Str("mode", m.String()).Msg("switch mode")
}

// Reset 回到空闲状态，正在进行的处理结果会被丢弃
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setLocked(Idle{})
}

// ResetIdle 超过 ttl 没有状态变化时重置，处理中或已经是空状态时不动
func (o *Orchestrator) ResetIdle(ttl time.Duration) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.state.(Processing); ok {
		return false
	}
	if o.state.Status() == StatusIdle && o.state.Original() == nil {
		return false
	}
	if o.now().Sub(o.touched) < ttl {
		return false
	}
	o.setLocked(Idle{})
	return true
}

// Select 选择文件，声明类型和模式不匹配时返回 *ValidationError，状态不变
func (o *Orchestrator) Select(u Upload) (*Asset, error) {
	if len(u.Data) == 0 {
		return nil, ErrNoFile
	}
	mimeType := sniff(u.MimeType, u.Data)

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.state.(Processing); ok {
		return nil, ErrBusy
	}
	if !o.mode.Accepts(mimeType) {
		return nil, &ValidationError{Mode: o.mode, MimeType: mimeType}
	}

	asset := newAsset(u.Name, mimeType, u.Data)
	o.setLocked(Idle{original: asset})
	o.logger.Info().Str("id", asset.ID).Str("name", asset.Name).Str("mime", mimeType).Int("bytes", asset.Size()).Msg("file selected")
	return asset, nil
}

type job struct {
	gen      uint64
	mode     Mode
	original *Asset
}

// Process 处理已选文件，返回最终状态
// 处理期间不持有锁，期间发生 Reset / SwitchMode 时结果被丢弃并返回 ErrDiscarded
func (o *Orchestrator) Process(ctx context.Context) (State, error) {
	j, err := o.begin()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, j)
}

// Start 同步进入 processing 状态后在后台处理，done 可以为 nil
func (o *Orchestrator) Start(ctx context.Context, done func(State, error)) error {
	j, err := o.begin()
	if err != nil {
		return err
	}
	go func() {
		s, err := o.run(ctx, j)
		if done != nil {
			done(s, err)
		}
	}()
	return nil
}

func (o *Orchestrator) begin() (job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.state.(Processing); ok {
		return job{}, ErrBusy
	}
	original := o.state.Original()
	if original == nil {
		return job{}, ErrNoFile
	}
	o.setLocked(Processing{original: original})
	return job{gen: o.gen, mode: o.mode, original: original}, nil
}

func (o *Orchestrator) run(ctx context.Context, j job) (State, error) {
	var next State
	var err error
	if j.mode == Video {
		next, err = o.processVideo(ctx, j.original)
	} else {
		next, err = o.processPhoto(ctx, j.original)
	}

	// 被取消时回到已选文件的空闲状态
	if next == nil || errors.Is(err, context.Canceled) {
		next = Idle{original: j.original}
	}
	if ferr := o.finish(j.gen, next); ferr != nil {
		return nil, ferr
	}
	return next, err
}

func (o *Orchestrator) processVideo(ctx context.Context, original *Asset) (State, error) {
	o.logger.Info().Str("id", original.ID).Dur("delay", o.videoDelay).Msg("video processing is not supported, simulating")

	timer := time.NewTimer(o.videoDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return Failed{original: original, message: VideoUnsupportedMessage, err: ErrUnsupportedMode}, ErrUnsupportedMode
}

func (o *Orchestrator) processPhoto(ctx context.Context, original *Asset) (State, error) {
	defer util.Trace("process photo")()

	if o.editor == nil {
		err := remoteError("", "no editor configured")
		return o.failed(original, err), err
	}
	name := o.editor.Name()

	in, resized, err := normalize(original, o.maxEdge)
	if err != nil {
		rerr := &RemoteProcessingError{Editor: name, Err: err}
		return o.failed(original, rerr), rerr
	}
	o.logger.Debug().Str("editor", name).Bool("resized", resized).Str("mime", in.MimeType).Int("bytes", len(in.Data)).Msg("calling editor")

	out, err := o.editor.Edit(ctx, in)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		rerr := &RemoteProcessingError{Editor: name, Err: err}
		return o.failed(original, rerr), rerr
	}
	if len(out.Data) == 0 {
		rerr := remoteError(name, "empty image returned by %s", name)
		return o.failed(original, rerr), rerr
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(out.Data)); err != nil {
		rerr := remoteError(name, "decode processed image: %w", err)
		return o.failed(original, rerr), rerr
	}

	mimeType := sniff(out.MimeType, out.Data)
	processed := newAsset("cleaned"+util.ExtensionFor(mimeType), mimeType, out.Data)
	o.logger.Info().Str("id", processed.ID).Str("editor", name).Int("width", processed.Width).Int("height", processed.Height).Msg("image cleaned")
	return Succeeded{original: original, processed: processed}, nil
}

func (o *Orchestrator) failed(original *Asset, err error) Failed {
	msg := err.Error()
	if msg == "" {
		msg = FallbackMessage
	}
	o.logger.Error().Err(err).Str("id", original.ID).Msg("processing failed")
	return Failed{original: original, message: msg, err: err}
}

func (o *Orchestrator) finish(gen uint64, next State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gen != gen {
		o.logger.Debug().Str("status", string(next.Status())).Msg("discard stale result")
		return ErrDiscarded
	}
	o.setLocked(next)
	return nil
}

// Export 把处理后的图片写到 dir，返回文件路径
func (o *Orchestrator) Export(dir string) (string, error) {
	o.mu.Lock()
	s, ok := o.state.(Succeeded)
	o.mu.Unlock()
	if !ok {
		return "", ErrNotReady
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, DownloadName(s.processed.MimeType, o.now()))
	if err := os.WriteFile(path, s.processed.Data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	o.logger.Info().Str("path", path).Msg("exported")
	return path, nil
}

func (o *Orchestrator) setLocked(s State) {
	o.state = s
	o.gen++
	o.touched = o.now()
}
