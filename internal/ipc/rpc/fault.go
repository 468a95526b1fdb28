package rpc

import (
	"fmt"

	"github.com/thatfloflo/quahl/internal/ipc/jsonrpc"
)

// Fault is a dispatch failure destined for the wire as an error object.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return f.Message
}

// MethodNotFound reports an unknown method name.
func MethodNotFound(method string) *Fault {
	return &Fault{
		Code:    jsonrpc.CodeMethodNotFound,
		Message: fmt.Sprintf("Method not found: no method named %q", method),
	}
}

// InvalidParams reports a parameter count or type mismatch.
func InvalidParams(format string, args ...any) *Fault {
	return &Fault{
		Code:    jsonrpc.CodeInvalidParams,
		Message: "Invalid params: " + fmt.Sprintf(format, args...),
	}
}

// ApplicationError reports a failure inside an otherwise well-formed
// call, such as the facade refusing an operation.
func ApplicationError(err error) *Fault {
	return &Fault{
		Code:    jsonrpc.CodeInternalError,
		Message: fmt.Sprintf("Internal error: %v", err),
	}
}
