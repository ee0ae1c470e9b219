package backend

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind names which argument a failed command blamed.
type FailureKind string

const (
	KindInput       FailureKind = "input"
	KindDeclaration FailureKind = "declaration"
	KindOutput      FailureKind = "output"
	KindUnknown     FailureKind = "unknown"
)

// CommandError is the structured failure of a backend command.
type CommandError struct {
	Command Command
	Kind    FailureKind
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed", e.Command)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ParseKind maps the kind names used on the wire to a FailureKind.
func ParseKind(name string) FailureKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "input", "inputfile", "inputdir":
		return KindInput
	case "declaration", "declarationfile":
		return KindDeclaration
	case "output", "outputfile", "outputdir":
		return KindOutput
	default:
		return KindUnknown
	}
}

// Classify returns the failure kind of err. A CommandError carrying a known
// kind wins; otherwise the error text is searched for the argument names
// older backends mention.
func Classify(err error) FailureKind {
	if err == nil {
		return KindUnknown
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Kind != "" && cmdErr.Kind != KindUnknown {
		return cmdErr.Kind
	}
	return classifyText(err.Error())
}

func classifyText(text string) FailureKind {
	switch {
	case strings.Contains(text, KeyInputFile):
		return KindInput
	case strings.Contains(text, "declaration"):
		return KindDeclaration
	case strings.Contains(text, "output"):
		return KindOutput
	default:
		return KindUnknown
	}
}
