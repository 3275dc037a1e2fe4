package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = 5 * time.Second

// Executor runs hooks with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A non-positive timeout uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute runs h with ev on stdin and returns its stdout.
func (e *Executor) Execute(ctx context.Context, h Hook, ev Event) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.Command, h.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(),
		EnvStatus+"="+ev.Status.String(),
		EnvPrevious+"="+ev.Previous.String(),
		EnvMessage+"="+ev.Message,
	)
	// Children that inherit the pipes must not hold up a killed hook.
	cmd.WaitDelay = 500 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("hook %s: timeout after %s", h.Name, e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("hook %s failed: %w, stderr: %s", h.Name, err, s)
		}
		return nil, fmt.Errorf("hook %s failed: %w", h.Name, err)
	}

	return stdout.Bytes(), nil
}
