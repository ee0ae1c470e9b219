package backend

import (
	"context"
	"errors"
	"strings"
)

// Command names an operation implemented by the external backend.
type Command string

const (
	ConvertImages Command = "convert_images"
	CreateSite    Command = "create_site"
)

// Payload keys understood by the built-in commands.
const (
	KeyInputDir        = "inputDir"
	KeyOutputDir       = "outputDir"
	KeyInputFile       = "inputFile"
	KeyDeclarationFile = "declarationFile"
	KeyOutputFile      = "outputFile"
)

// FailureMarker is the text some backends embed in an otherwise successful
// response to report a failure.
const FailureMarker = "Error"

var ErrUnknownCommand = errors.New("unknown backend command")

// Payload carries the named arguments of a command. A nil value means the
// argument was never set.
type Payload map[string]interface{}

// Result is the response of a command that completed.
type Result struct {
	Text string
	// Failed is set by backends that report failure inside a completed
	// response instead of as an error.
	Failed bool
}

// SoftFailure reports whether a completed response actually describes a
// failure, either flagged by the backend or carrying FailureMarker.
func (r Result) SoftFailure() bool {
	return r.Failed || strings.Contains(r.Text, FailureMarker)
}

// Invoker runs a named backend command and waits for its single response.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command, payload Payload) (Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, cmd Command, payload Payload) (Result, error)

func (f InvokerFunc) Invoke(ctx context.Context, cmd Command, payload Payload) (Result, error) {
	return f(ctx, cmd, payload)
}
