package clean

// Status 状态的标签
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// State 处理流程的状态，只有 Idle / Processing / Succeeded / Failed 四种
// 字段不导出，只能由 Orchestrator 构造，成功状态一定带着处理后的图片
type State interface {
	Status() Status
	Original() *Asset
	isState()
}

// Idle 空闲，可能已经选好了文件
type Idle struct {
	original *Asset
}

func (s Idle) Status() Status { return StatusIdle }
func (s Idle) Original() *Asset { return s.original }
func (Idle) isState() {}

// Processing 正在处理
type Processing struct {
	original *Asset
}

func (s Processing) Status() Status { return StatusProcessing }
func (s Processing) Original() *Asset { return s.original }
func (Processing) isState() {}

// Succeeded 处理成功，原图和结果都在
type Succeeded struct {
	original  *Asset
	processed *Asset
}

func (s Succeeded) Status() Status { return StatusSuccess }
func (s Succeeded) Original() *Asset { return s.original }
func (s Succeeded) Processed() *Asset { return s.processed }
func (Succeeded) isState() {}

// Failed 处理失败，Message 直接展示给用户
type Failed struct {
	original *Asset
	message  string
	err      error
}

func (s Failed) Status() Status { return StatusError }
func (s Failed) Original() *Asset { return s.original }
func (s Failed) Message() string { return s.message }
func (s Failed) Err() error { return s.err }
func (Failed) isState() {}
