package mcphost

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Transport provides the framed message exchange with a peer process. The
// canonical implementation is StdioTransport; tests substitute in-memory
// implementations.
type Transport interface {
	// Connect establishes the connection to the peer.
	Connect() error

	// Send transmits one message to the peer. The write of one message is
	// atomic with respect to concurrent senders.
	Send(msg JSONRPCMessage) error

	// Receive blocks until one full message is available and returns it.
	Receive() (JSONRPCMessage, error)

	// Close releases the connection and any resources backing it. It is
	// idempotent.
	Close() error
}

// StdioTransport launches a peer process and exchanges newline-delimited
// JSON-RPC messages over its standard input and output. The peer's standard
// error is left connected to this process's own, so server diagnostics remain
// visible to the user.
//
// A StdioTransport must be created with NewStdioTransport and connected with
// Connect before use. Close must be called to reclaim the child process; after
// Close all operations fail with ErrNotConnected.
type StdioTransport struct {
	command     []string
	logger      *slog.Logger
	gracePeriod time.Duration

	// mu guards the lifecycle fields below; writeMu serializes whole-message
	// writes so concurrent senders can never tear the newline framing.
	mu      sync.Mutex
	writeMu sync.Mutex

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	closed bool
}

// StdioOption is a function that configures a StdioTransport.
type StdioOption func(*StdioTransport)

const defaultGracePeriod = 2 * time.Second

// WithStdioLogger sets the logger for the transport.
func WithStdioLogger(logger *slog.Logger) StdioOption {
	return func(t *StdioTransport) {
		t.logger = logger
	}
}

// WithGracePeriod sets how long Close waits for the peer process to exit after
// asking it to terminate, before killing it.
func WithGracePeriod(d time.Duration) StdioOption {
	return func(t *StdioTransport) {
		t.gracePeriod = d
	}
}

// NewStdioTransport creates a transport that will launch the given command.
// The first element is the executable and the rest are its arguments. The
// command is not started until Connect is called.
func NewStdioTransport(command []string, options ...StdioOption) *StdioTransport {
	t := &StdioTransport{
		command:     command,
		logger:      slog.Default(),
		gracePeriod: defaultGracePeriod,
	}
	for _, opt := range options {
		opt(t)
	}

	// Tag every record with a session id so interleaved hosts remain
	// distinguishable in shared logs.
	t.logger = t.logger.With(slog.String("session", uuid.New().String()))

	return t
}

// Connect launches the peer process with its stdin and stdout redirected to
// this transport and its stderr inherited from the parent. It returns a
// *LaunchError if the command is empty, the executable cannot be found, or the
// OS refuses to create the process.
func (t *StdioTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("connect: %w", ErrNotConnected)
	}
	if t.cmd != nil {
		return errors.New("already connected")
	}
	if len(t.command) == 0 {
		return &LaunchError{Command: t.command, Err: errors.New("empty command")}
	}

	cmd := exec.Command(t.command[0], t.command[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &LaunchError{Command: t.command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &LaunchError{Command: t.command, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &LaunchError{Command: t.command, Err: err}
	}

	t.cmd = cmd
	t.stdin = stdin
	// Use bufio.Reader instead of bufio.Scanner to avoid max token size errors
	// on large messages.
	t.stdout = bufio.NewReader(stdout)

	t.logger.Debug("peer process launched",
		slog.String("command", strings.Join(t.command, " ")),
		slog.Int("pid", cmd.Process.Pid))

	return nil
}

// Send serializes msg to a single line of JSON terminated by a newline and
// writes it to the peer's standard input. The whole line is written under a
// lock, so messages from concurrent callers never interleave.
func (t *StdioTransport) Send(msg JSONRPCMessage) error {
	t.mu.Lock()
	stdin := t.stdin
	t.mu.Unlock()

	if stdin == nil {
		return fmt.Errorf("send: %w", ErrNotConnected)
	}

	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	// Append newline to maintain message framing protocol
	msgBs = append(msgBs, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := stdin.Write(msgBs); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive blocks until one full line arrives from the peer's standard output
// and returns it parsed. It returns ErrConnectionClosed if the stream ends
// before a line is produced, and a *ProtocolError if the line is not valid
// JSON.
func (t *StdioTransport) Receive() (JSONRPCMessage, error) {
	t.mu.Lock()
	stdout := t.stdout
	t.mu.Unlock()

	if stdout == nil {
		return JSONRPCMessage{}, fmt.Errorf("receive: %w", ErrNotConnected)
	}

	for {
		line, err := stdout.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return JSONRPCMessage{}, ErrConnectionClosed
			}
			return JSONRPCMessage{}, fmt.Errorf("failed to read message: %w", err)
		}

		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			continue
		}

		var msg JSONRPCMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return JSONRPCMessage{}, &ProtocolError{Line: truncateLine(line), Err: err}
		}
		return msg, nil
	}
}

// Close shuts the peer process down: it closes the process's standard input,
// asks it to terminate, and, if it has not exited within the grace period,
// kills it. Close never fails for an already-closed transport, and after Close
// all handles are cleared so Send and Receive fail with ErrNotConnected.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	cmd := t.cmd
	stdin := t.stdin
	t.cmd = nil
	t.stdin = nil
	t.stdout = nil
	t.mu.Unlock()

	if stdin != nil {
		// Closing stdin is the cooperative shutdown signal for well-behaved
		// servers; ignore errors since the pipe may already be broken.
		_ = stdin.Close()
	}

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// The process may already be gone, or the platform may not deliver
		// signals; escalate straight to Kill below if it is still running.
		t.logger.Debug("terminate signal failed", slog.String("err", err.Error()))
	}

	waited := make(chan error, 1)
	go func() {
		waited <- cmd.Wait()
	}()

	select {
	case <-waited:
	case <-time.After(t.gracePeriod):
		t.logger.Warn("peer process did not exit in time, killing",
			slog.Int("pid", cmd.Process.Pid))
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill peer process: %w", err)
		}
		<-waited
	}

	t.logger.Debug("peer process exited", slog.String("state", cmd.ProcessState.String()))

	return nil
}

// truncateLine caps the offending input carried inside a ProtocolError,
// backing up to a rune boundary so the result stays valid UTF-8.
func truncateLine(line string) string {
	const maxLen = 256
	if len(line) <= maxLen {
		return line
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + "..."
}
