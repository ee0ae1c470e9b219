package backend

import (
	"bufio"
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"porter/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, script string) ProcessConfig {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("backend scripts need a POSIX shell")
	}
	return ProcessConfig{Command: "sh", Args: []string{"-c", script}}
}

type collected struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collected) add(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collected) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

func TestExecInvoker_StreamsNotificationsBeforeResult(t *testing.T) {
	script := `
printf '%s\n' '{"event":"work","payload":[1,2]}'
printf '%s\n' '{"event":"skip","payload":"photo2.png"}'
printf '%s\n' '{"event":"work","payload":[2,2]}'
printf '%s\n' '{"event":"result","payload":"The operation is done."}'
`
	bus := events.NewBus(4)
	defer bus.Shutdown()

	got := &collected{}
	bus.Subscribe(events.TypeWork, got.add)
	bus.Subscribe(events.TypeSkip, got.add)

	inv := NewExecInvoker(WithPublisher(bus))
	inv.Register(ConvertImages, shell(t, script))

	res, err := inv.Invoke(context.Background(), ConvertImages, Payload{KeyInputDir: "/in", KeyOutputDir: "/out"})
	require.NoError(t, err)
	assert.Equal(t, "The operation is done.", res.Text)
	assert.False(t, res.Failed)

	// the invoker flushes the bus, so everything is delivered by now
	evs := got.all()
	require.Len(t, evs, 3)
	assert.Equal(t, events.WorkProgress{Done: 1, Total: 2}, evs[0].Data)
	assert.Equal(t, events.Skipped{Item: "photo2.png"}, evs[1].Data)
	assert.Equal(t, events.WorkProgress{Done: 2, Total: 2}, evs[2].Data)
}

func TestExecInvoker_PassesPayloadAsEnvironment(t *testing.T) {
	inv := NewExecInvoker(WithRegistry(map[string]ProcessConfig{
		string(CreateSite): shell(t, `echo "$PORTER_COMMAND|$PORTER_ARG_INPUTFILE|${PORTER_ARG_OUTPUTFILE-unset}|$SITE_THEME"`),
	}))
	proc := inv.registry[CreateSite]
	proc.Env = map[string]string{"SITE_THEME": "dark"}
	inv.Register(CreateSite, proc)

	res, err := inv.Invoke(context.Background(), CreateSite, Payload{
		KeyInputFile:  "/tmp/index.html",
		KeyOutputFile: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "create_site|/tmp/index.html|unset|dark", res.Text)
}

func TestExecInvoker_StructuredErrorMessage(t *testing.T) {
	inv := NewExecInvoker()
	inv.Register(CreateSite, shell(t, `echo '{"event":"error","payload":{"kind":"inputFile","message":"template not found"}}'; exit 1`))

	_, err := inv.Invoke(context.Background(), CreateSite, Payload{})
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, KindInput, cmdErr.Kind)
	assert.Equal(t, "template not found", err.Error())
}

func TestExecInvoker_ExitStatusUsesStderr(t *testing.T) {
	inv := NewExecInvoker()
	inv.Register(CreateSite, shell(t, `echo 'cannot create output file' >&2; exit 3`))

	_, err := inv.Invoke(context.Background(), CreateSite, Payload{})
	require.Error(t, err)
	assert.Equal(t, KindOutput, Classify(err))
	assert.Equal(t, "cannot create output file", err.Error())
}

func TestExecInvoker_SoftFailureResult(t *testing.T) {
	inv := NewExecInvoker()
	inv.Register(CreateSite, shell(t, `echo '{"event":"result","payload":{"text":"Error: there is no occurrence of ITEMS","failed":true}}'`))

	res, err := inv.Invoke(context.Background(), CreateSite, Payload{})
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.True(t, res.SoftFailure())
}

func TestExecInvoker_UnknownCommand(t *testing.T) {
	inv := NewExecInvoker()

	_, err := inv.Invoke(context.Background(), Command("format_disk"), nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestExecInvoker_Timeout(t *testing.T) {
	inv := NewExecInvoker(WithTimeout(50 * time.Millisecond))
	inv.Register(ConvertImages, shell(t, `exec sleep 5`))

	start := time.Now()
	_, err := inv.Invoke(context.Background(), ConvertImages, Payload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecInvoker_Commands(t *testing.T) {
	inv := NewExecInvoker(WithRegistry(map[string]ProcessConfig{
		"create_site":    {Command: "porter-site"},
		"convert_images": {Command: "porter-images"},
	}))
	assert.Equal(t, []Command{ConvertImages, CreateSite}, inv.Commands())
}

func TestBuildEnv(t *testing.T) {
	env := buildEnv(ConvertImages, "id-1", map[string]string{"B": "2", "A": "1"}, Payload{
		KeyOutputDir: "/out",
		KeyInputDir:  "/in",
		"unset":      nil,
	})
	assert.Equal(t, []string{
		"A=1",
		"B=2",
		"PORTER_COMMAND=convert_images",
		"PORTER_INVOCATION_ID=id-1",
		"PORTER_ARG_INPUTDIR=/in",
		"PORTER_ARG_OUTPUTDIR=/out",
	}, env)
}

func TestExecInvoker_TimeoutStopsChildProcesses(t *testing.T) {
	inv := NewExecInvoker(WithTimeout(100 * time.Millisecond))
	inv.Register(ConvertImages, shell(t, `sleep 3; echo done`))

	start := time.Now()
	_, err := inv.Invoke(context.Background(), ConvertImages, Payload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecInvoker_OutputHeldOpenByDescendant(t *testing.T) {
	inv := NewExecInvoker()
	inv.waitDelay = 100 * time.Millisecond
	inv.Register(CreateSite, shell(t, `sleep 3 & echo '{"event":"result","payload":"The operation is done."}'`))

	start := time.Now()
	res, err := inv.Invoke(context.Background(), CreateSite, Payload{})
	require.NoError(t, err)
	assert.Equal(t, "The operation is done.", res.Text)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecInvoker_OversizedLineFailsWithoutBlocking(t *testing.T) {
	script := `
head -c 2097152 /dev/zero | tr '\0' a
echo
i=0
while [ $i -lt 2000 ]; do echo "trailing output line $i"; i=$((i+1)); done
echo '{"event":"result","payload":"The operation is done."}'
`
	inv := NewExecInvoker()
	inv.Register(CreateSite, shell(t, script))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := inv.Invoke(ctx, CreateSite, Payload{})
	require.Error(t, err)
	require.NoError(t, ctx.Err())

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.Equal(t, KindUnknown, cmdErr.Kind)
}
