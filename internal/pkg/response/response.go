// Package response is the JSON envelope every handler replies with.
package response

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError carries the numeric errcode through proxyutil's fail path.
type apiError struct {
	code uint32
	msg  string
}

func (e *apiError) Error() string { return e.msg }

func (e *apiError) Code() uint32 { return e.code }

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, &apiError{code: uint32(code), msg: message})
}

func Errorf(c *gin.Context, code int, format string, args ...interface{}) {
	Error(c, code, fmt.Sprintf(format, args...))
}
