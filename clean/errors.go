package clean

import (
	"errors"
	"fmt"
)

const (
	VideoUnsupportedMessage = "视频去水印功能正在升级中，目前仅支持图片去水印。请尝试上传图片体验！"
	FallbackMessage         = "处理失败，请稍后重试"

	photoHint = "请上传图片文件 (JPG, PNG, WEBP)"
	videoHint = "请上传视频文件 (MP4, WEBM)"
)

var (
	ErrNoFile          = errors.New("no file selected")
	ErrBusy            = errors.New("processing already in progress")
	ErrNotReady        = errors.New("no processed image yet")
	ErrDiscarded       = errors.New("result discarded after reset")
	ErrUnsupportedMode = errors.New(VideoUnsupportedMessage)
)

// ValidationError 声明类型和当前模式不匹配，选择文件时同步返回
type ValidationError struct {
	Mode     Mode
	MimeType string
}

func (e *ValidationError) Error() string {
	if e.Mode == Video {
		return videoHint
	}
	return photoHint
}

// RemoteProcessingError 外部编辑服务失败或没有返回可用的图片
type RemoteProcessingError struct {
	Editor string
	Err    error
}

func (e *RemoteProcessingError) Error() string {
	if e.Err == nil || e.Err.Error() == "" {
		return FallbackMessage
	}
	return e.Err.Error()
}

func (e *RemoteProcessingError) Unwrap() error {
	return e.Err
}

func remoteError(editor string, format string, args ...any) *RemoteProcessingError {
	return &RemoteProcessingError{Editor: editor, Err: fmt.Errorf(format, args...)}
}
