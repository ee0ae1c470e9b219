package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"porter/internal/events"

	"github.com/mitchellh/mapstructure"
)

// Event names on the backend's stdout stream, besides the notification types
// defined in package events.
const (
	eventResult = "result"
	eventError  = "error"
)

// message is one JSON line written by a backend process.
type message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type wireResult struct {
	Text   string `mapstructure:"text"`
	Failed bool   `mapstructure:"failed"`
}

type wireError struct {
	Kind    string `mapstructure:"kind"`
	Message string `mapstructure:"message"`
}

type wireProgress struct {
	Done  int `mapstructure:"done"`
	Total int `mapstructure:"total"`
}

// parseLine decodes a stdout line. ok is false for lines that are not
// protocol messages.
func parseLine(line string) (msg message, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return message{}, false
	}
	if err := json.Unmarshal([]byte(trimmed), &msg); err != nil || msg.Event == "" {
		return message{}, false
	}
	return msg, true
}

// decodeProgress accepts both the tuple form [done, total] and the object
// form {"done": n, "total": m}.
func decodeProgress(payload interface{}) (events.WorkProgress, error) {
	switch v := payload.(type) {
	case []interface{}:
		if len(v) != 2 {
			return events.WorkProgress{}, fmt.Errorf("work payload has %d elements, want 2", len(v))
		}
		done, err := toInt(v[0])
		if err != nil {
			return events.WorkProgress{}, fmt.Errorf("work done: %w", err)
		}
		total, err := toInt(v[1])
		if err != nil {
			return events.WorkProgress{}, fmt.Errorf("work total: %w", err)
		}
		return events.WorkProgress{Done: done, Total: total}, nil
	case map[string]interface{}:
		var p wireProgress
		if err := mapstructure.WeakDecode(v, &p); err != nil {
			return events.WorkProgress{}, fmt.Errorf("work payload: %w", err)
		}
		return events.WorkProgress{Done: p.Done, Total: p.Total}, nil
	default:
		return events.WorkProgress{}, fmt.Errorf("unsupported work payload %T", payload)
	}
}

func decodeSkip(payload interface{}) (events.Skipped, error) {
	switch v := payload.(type) {
	case string:
		return events.Skipped{Item: v}, nil
	case float64:
		return events.Skipped{Item: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case map[string]interface{}:
		var s struct {
			Item string `mapstructure:"item"`
		}
		if err := mapstructure.WeakDecode(v, &s); err != nil {
			return events.Skipped{}, fmt.Errorf("skip payload: %w", err)
		}
		return events.Skipped{Item: s.Item}, nil
	default:
		return events.Skipped{}, fmt.Errorf("unsupported skip payload %T", payload)
	}
}

func decodeResult(payload interface{}) (Result, error) {
	switch v := payload.(type) {
	case string:
		return Result{Text: v}, nil
	case map[string]interface{}:
		var r wireResult
		if err := mapstructure.WeakDecode(v, &r); err != nil {
			return Result{}, fmt.Errorf("result payload: %w", err)
		}
		return Result{Text: r.Text, Failed: r.Failed}, nil
	case nil:
		return Result{}, nil
	default:
		return Result{}, fmt.Errorf("unsupported result payload %T", payload)
	}
}

func decodeError(cmd Command, payload interface{}) *CommandError {
	switch v := payload.(type) {
	case string:
		return &CommandError{Command: cmd, Kind: classifyText(v), Message: v}
	case map[string]interface{}:
		var w wireError
		if err := mapstructure.WeakDecode(v, &w); err != nil {
			return &CommandError{Command: cmd, Kind: KindUnknown, Message: fmt.Sprint(v), Err: err}
		}
		kind := ParseKind(w.Kind)
		if kind == KindUnknown {
			kind = classifyText(w.Message)
		}
		return &CommandError{Command: cmd, Kind: kind, Message: w.Message}
	default:
		return &CommandError{Command: cmd, Kind: KindUnknown, Message: fmt.Sprint(v)}
	}
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
