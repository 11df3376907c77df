package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/cleanlens/clean"
)

const (
	CodeOK         = 0
	CodeBadRequest = 40000
	CodeValidation = 40001
	CodeNoFile     = 40002
	CodeTooLarge   = 41300
	CodeConflict   = 40900
	CodeNotReady   = 40901
	CodeInternal   = 50000
)

type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: CodeOK, Message: "ok", Data: data})
}

func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, Body{Code: CodeOK, Message: "accepted", Data: data})
}

func Error(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, Body{Code: code, Message: msg})
}

// Fail 把编排器的错误映射为 HTTP 状态码
func Fail(c *gin.Context, err error) {
	var verr *clean.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, CodeValidation, verr.Error())
	case errors.Is(err, clean.ErrNoFile):
		Error(c, http.StatusBadRequest, CodeNoFile, err.Error())
	case errors.Is(err, clean.ErrBusy):
		Error(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, clean.ErrNotReady):
		Error(c, http.StatusConflict, CodeNotReady, err.Error())
	default:
		Error(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}
