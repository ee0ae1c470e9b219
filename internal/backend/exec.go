package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"time"

	"porter/internal/events"
	"porter/internal/logger"

	"github.com/google/uuid"
)

const (
	// ArgEnvPrefix prefixes the environment variables carrying payload
	// arguments, e.g. PORTER_ARG_INPUTDIR.
	ArgEnvPrefix = "PORTER_ARG_"

	envCommand    = "PORTER_COMMAND"
	envInvocation = "PORTER_INVOCATION_ID"

	maxLineSize = 1024 * 1024

	// defaultWaitDelay bounds how long stdout stays open after the backend
	// exited or was cancelled, e.g. held by a process it left behind.
	defaultWaitDelay = 2 * time.Second
)

// ProcessConfig describes the executable serving one command.
type ProcessConfig struct {
	Command string            `yaml:"command" mapstructure:"command"`
	Args    []string          `yaml:"args" mapstructure:"args"`
	Env     map[string]string `yaml:"env" mapstructure:"env"`
}

// Publisher receives the notifications a command emits while running.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
	Flush(ctx context.Context) error
}

type ExecOption func(*ExecInvoker)

// WithRegistry adds every configured command to the allow-list.
func WithRegistry(commands map[string]ProcessConfig) ExecOption {
	return func(e *ExecInvoker) {
		for name, proc := range commands {
			e.Register(Command(name), proc)
		}
	}
}

func WithPublisher(p Publisher) ExecOption {
	return func(e *ExecInvoker) {
		e.publisher = p
	}
}

func WithLogger(l logger.Logger) ExecOption {
	return func(e *ExecInvoker) {
		e.logger = l
	}
}

// WithTimeout bounds each invocation. Zero means no bound.
func WithTimeout(d time.Duration) ExecOption {
	return func(e *ExecInvoker) {
		e.timeout = d
	}
}

// WithBaseDir sets the working directory of backend processes.
func WithBaseDir(dir string) ExecOption {
	return func(e *ExecInvoker) {
		e.baseDir = dir
	}
}

// ExecInvoker runs each command as a local process. Only registered commands
// can run; payload arguments travel as environment variables, never as flags.
type ExecInvoker struct {
	registry  map[Command]ProcessConfig
	publisher Publisher
	logger    logger.Logger
	timeout   time.Duration
	waitDelay time.Duration
	baseDir   string
}

func NewExecInvoker(opts ...ExecOption) *ExecInvoker {
	e := &ExecInvoker{
		registry:  make(map[Command]ProcessConfig),
		logger:    logger.Nop(),
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ExecInvoker) Register(cmd Command, proc ProcessConfig) {
	e.registry[cmd] = proc
}

// Commands lists the registered command names in sorted order.
func (e *ExecInvoker) Commands() []Command {
	names := make([]Command, 0, len(e.registry))
	for name := range e.registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (e *ExecInvoker) Invoke(ctx context.Context, cmd Command, payload Payload) (Result, error) {
	proc, ok := e.registry[cmd]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	invocation := uuid.NewString()
	fields := map[string]interface{}{
		"command":    string(cmd),
		"invocation": invocation,
	}
	e.logger.Debug("ExecInvoker", "starting backend process", map[string]interface{}{
		"command":    string(cmd),
		"invocation": invocation,
		"executable": proc.Command,
	})

	c := exec.CommandContext(ctx, proc.Command, proc.Args...)
	c.Dir = e.baseDir
	c.Env = append(c.Environ(), buildEnv(cmd, invocation, proc.Env, payload)...)
	c.WaitDelay = e.waitDelay
	configureProcess(c)

	var stderr bytes.Buffer
	c.Stderr = &stderr

	// Wait runs beside the reader and closes the pipe once the process and
	// its output copy are done, so a descendant holding stdout cannot keep
	// the reader blocked past WaitDelay.
	stdout, stdoutWriter := io.Pipe()
	c.Stdout = stdoutWriter

	start := time.Now()
	if err := c.Start(); err != nil {
		return Result{}, &CommandError{Command: cmd, Kind: KindUnknown, Message: fmt.Sprintf("cannot start %s: %v", cmd, err), Err: err}
	}

	waitDone := make(chan error, 1)
	go func() {
		err := c.Wait()
		stdoutWriter.Close()
		waitDone <- err
	}()

	out := e.readStream(ctx, cmd, stdout)
	waitErr := <-waitDone

	if errors.Is(waitErr, exec.ErrWaitDelay) {
		e.logger.Warning("ExecInvoker", "backend left its output open after exiting", fields)
		waitErr = nil
	}

	if e.publisher != nil {
		if err := e.publisher.Flush(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, events.ErrClosed) {
			e.logger.Warning("ExecInvoker", "flushing notifications failed", fields)
		}
	}

	fields["duration_ms"] = time.Since(start).Milliseconds()

	switch {
	case out.failure != nil:
		e.logger.Debug("ExecInvoker", "backend reported failure", fields)
		return Result{}, out.failure
	case ctx.Err() != nil && (waitErr != nil || out.readErr != nil):
		return Result{}, fmt.Errorf("%s interrupted: %w", cmd, ctx.Err())
	case out.readErr != nil:
		e.logger.Error("ExecInvoker", out.readErr, fields)
		return Result{}, &CommandError{
			Command: cmd,
			Kind:    KindUnknown,
			Message: fmt.Sprintf("cannot read the %s response: %v", cmd, out.readErr),
			Err:     out.readErr,
		}
	case waitErr != nil:
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		return Result{}, &CommandError{Command: cmd, Kind: classifyText(msg), Message: msg, Err: waitErr}
	case out.result != nil:
		e.logger.Debug("ExecInvoker", "backend process finished", fields)
		return *out.result, nil
	default:
		e.logger.Debug("ExecInvoker", "backend process finished without result message", fields)
		return Result{Text: strings.TrimSpace(out.plain.String())}, nil
	}
}

type streamOutput struct {
	result  *Result
	failure *CommandError
	plain   strings.Builder
	readErr error
}

func (e *ExecInvoker) readStream(ctx context.Context, cmd Command, r io.Reader) *streamOutput {
	out := &streamOutput{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		msg, ok := parseLine(line)
		if !ok {
			if out.plain.Len() > 0 {
				out.plain.WriteByte('\n')
			}
			out.plain.WriteString(line)
			continue
		}
		e.handleMessage(ctx, cmd, msg, out)
	}
	out.readErr = scanner.Err()

	// The scanner stops early on an oversized line. Keep the pipe drained so
	// the backend never blocks on a full stdout.
	if _, err := io.Copy(io.Discard, r); err != nil && out.readErr == nil {
		out.readErr = err
	}
	return out
}

func (e *ExecInvoker) handleMessage(ctx context.Context, cmd Command, msg message, out *streamOutput) {
	switch msg.Event {
	case events.TypeWork:
		progress, err := decodeProgress(msg.Payload)
		if err != nil {
			e.logger.Warning("ExecInvoker", "malformed work notification", map[string]interface{}{"command": string(cmd), "error": err.Error()})
			return
		}
		e.publish(ctx, events.Event{Type: events.TypeWork, Data: progress})
	case events.TypeSkip:
		skipped, err := decodeSkip(msg.Payload)
		if err != nil {
			e.logger.Warning("ExecInvoker", "malformed skip notification", map[string]interface{}{"command": string(cmd), "error": err.Error()})
			return
		}
		e.publish(ctx, events.Event{Type: events.TypeSkip, Data: skipped})
	case eventResult:
		res, err := decodeResult(msg.Payload)
		if err != nil {
			e.logger.Warning("ExecInvoker", "malformed result message", map[string]interface{}{"command": string(cmd), "error": err.Error()})
			return
		}
		out.result = &res
	case eventError:
		out.failure = decodeError(cmd, msg.Payload)
	default:
		e.logger.Debug("ExecInvoker", "ignoring unknown backend message", map[string]interface{}{
			"command": string(cmd),
			"event":   msg.Event,
		})
	}
}

func (e *ExecInvoker) publish(ctx context.Context, event events.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil && !errors.Is(err, events.ErrClosed) {
		e.logger.Warning("ExecInvoker", "dropping notification", map[string]interface{}{
			"event": event.Type,
			"error": err.Error(),
		})
	}
}

// buildEnv renders the process environment: configured variables first, then
// the invocation metadata and the payload. Unset payload values are omitted.
func buildEnv(cmd Command, invocation string, extra map[string]string, payload Payload) []string {
	env := make([]string, 0, len(extra)+len(payload)+2)

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	env = append(env, envCommand+"="+string(cmd), envInvocation+"="+invocation)

	keys = keys[:0]
	for k, v := range payload {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s%s=%v", ArgEnvPrefix, strings.ToUpper(k), payload[k]))
	}
	return env
}
