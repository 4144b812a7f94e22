package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// stderrTailMax is how many recent stderr lines are kept for diagnostics.
const stderrTailMax = 100

// Command is a started or startable FFmpeg invocation. It owns the stderr
// scanner and the exit watcher so callers observe the process through
// Done/ExitErr instead of juggling pipes.
type Command struct {
	Binary string
	Args   []string

	mu      sync.RWMutex
	cmd     *exec.Cmd
	started time.Time
	exitErr error
	done    chan struct{}
	onLine  func(string)

	stderrMu   sync.RWMutex
	stderrTail []string
}

// NewCommand creates a command from a binary path and argument list.
func NewCommand(binary string, args []string) *Command {
	return &Command{
		Binary: binary,
		Args:   args,
		done:   make(chan struct{}),
	}
}

// String returns the full command line.
func (c *Command) String() string {
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// OnStderrLine registers a callback invoked for every stderr line. Must be
// set before Start. The callback runs on the scanner goroutine and must not
// block.
func (c *Command) OnStderrLine(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLine = fn
}

// Start spawns the process and begins consuming stderr. Cancelling ctx
// force-kills the process; graceful shutdown goes through Stop.
func (c *Command) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cmd != nil {
		c.mu.Unlock()
		return fmt.Errorf("command already started")
	}

	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("getting stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		c.exitErr = err
		close(c.done)
		c.mu.Unlock()
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	c.cmd = cmd
	c.started = time.Now()
	onLine := c.onLine
	c.mu.Unlock()

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			c.appendStderr(line)
			if onLine != nil {
				onLine(line)
			}
		}
	}()

	go func() {
		// Drain stderr before Wait so no output is lost when the
		// process exits.
		<-scanDone
		err := cmd.Wait()

		c.mu.Lock()
		c.exitErr = err
		c.mu.Unlock()
		close(c.done)
	}()

	return nil
}

func (c *Command) appendStderr(line string) {
	c.stderrMu.Lock()
	defer c.stderrMu.Unlock()
	if len(c.stderrTail) >= stderrTailMax {
		c.stderrTail = c.stderrTail[1:]
	}
	c.stderrTail = append(c.stderrTail, line)
}

// StderrTail returns a copy of the recent stderr lines.
func (c *Command) StderrTail() []string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()
	tail := make([]string, len(c.stderrTail))
	copy(tail, c.stderrTail)
	return tail
}

// LastStderrLine returns the most recent stderr line, or "".
func (c *Command) LastStderrLine() string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()
	if len(c.stderrTail) == 0 {
		return ""
	}
	return c.stderrTail[len(c.stderrTail)-1]
}

// Done is closed once the process has exited and stderr is fully drained.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// ExitErr returns the error from Wait. Valid after Done is closed; nil
// means exit code 0.
func (c *Command) ExitErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exitErr
}

// ExitCode returns the process exit code, or -1 if it has not exited.
func (c *Command) ExitCode() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cmd == nil || c.cmd.ProcessState == nil {
		return -1
	}
	return c.cmd.ProcessState.ExitCode()
}

// PID returns the process ID, or 0 before Start.
func (c *Command) PID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// IsRunning returns true while the process is alive.
func (c *Command) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cmd == nil || c.cmd.Process == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Uptime returns how long the process has been running.
func (c *Command) Uptime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.started.IsZero() {
		return 0
	}
	return time.Since(c.started)
}

// Stop terminates the process gracefully: SIGTERM, then SIGKILL once the
// grace period expires. It blocks until the process has exited. Stopping a
// process that never started or already exited is a no-op.
func (c *Command) Stop(grace time.Duration) error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		// SIGTERM never reached the process, so no graceful exit is coming.
		// Waiting out the grace period would just delay the kill.
		if kerr := cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			return fmt.Errorf("killing ffmpeg pid %d after undeliverable SIGTERM (%v): %w", cmd.Process.Pid, err, kerr)
		}
		<-c.done
		return nil
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(grace):
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing ffmpeg pid %d: %w", cmd.Process.Pid, err)
	}

	<-c.done
	return nil
}

// Kill terminates the process immediately.
func (c *Command) Kill() error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Signal sends a signal to the process.
func (c *Command) Signal(sig os.Signal) error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(sig)
}
