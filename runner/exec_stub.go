//go:build !linux

package runner

import (
	"context"
	"fmt"
	"io"
	"runtime"
)

type child struct {
	pid int
}

func spawnStopped(target string, args []string, stdin io.Reader, stdout, stderr io.Writer) (*child, error) {
	return nil, fmt.Errorf("measured execution is not supported on %s", runtime.GOOS)
}

func (c *child) run(ctx context.Context) error {
	return fmt.Errorf("measured execution is not supported on %s", runtime.GOOS)
}

func (c *child) abort() {}
