//go:build linux

package runner

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// child is a spawned target process, stopped at exec until run is called.
// Counters attached while it is stopped observe the process from its very
// first user instruction.
type child struct {
	cmd      *exec.Cmd
	pid      int
	detached bool
}

// spawnStopped starts target under ptrace so the process stops before
// executing any user code. The calling goroutine is locked to its OS
// thread until run or abort resumes the child; ptrace requests must come
// from the tracing thread.
func spawnStopped(target string, args []string, stdin io.Reader, stdout, stderr io.Writer) (*child, error) {
	cmd := exec.Command(target, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	runtime.LockOSThread()
	if err := cmd.Start(); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	pid := cmd.Process.Pid

	// Reap the SIGTRAP stop the child enters when it execs the target.
	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		runtime.UnlockOSThread()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("wait for exec stop: %w", err)
	}
	if !ws.Stopped() {
		runtime.UnlockOSThread()
		cmd.Wait()
		return nil, fmt.Errorf("child exited before exec stop (status %d)", ws.ExitStatus())
	}

	return &child{cmd: cmd, pid: pid}, nil
}

// run resumes the child and blocks until it exits. A cancelled context
// kills the child; its counts are invalid either way.
func (c *child) run(ctx context.Context) error {
	if err := c.detach(); err != nil {
		c.abort()
		return fmt.Errorf("resume pid %d: %v: %w", c.pid, err, ErrProcess)
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		return exitError(err)
	case <-ctx.Done():
		c.cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

// abort kills a child that should never run to completion and reaps it.
func (c *child) abort() {
	unix.Kill(c.pid, unix.SIGKILL)
	c.detach()
	c.cmd.Wait()
}

func (c *child) detach() error {
	if c.detached {
		return nil
	}
	c.detached = true
	err := unix.PtraceDetach(c.pid)
	runtime.UnlockOSThread()
	return err
}

func exitError(err error) error {
	if err == nil {
		return nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return fmt.Errorf("%v: %w", err, ErrProcess)
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok && ws.Signaled() {
		return fmt.Errorf("terminated by signal %s: %w", ws.Signal(), ErrProcess)
	}
	return fmt.Errorf("exited with status %d: %w", exitErr.ExitCode(), ErrProcess)
}
