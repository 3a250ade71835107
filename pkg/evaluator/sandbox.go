package evaluator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// ErrSourceTooLarge and ErrLanguageNotAllowed are returned by ExecuteCode
// before any network call is made, per the input-validation contract the
// Code Execution Proxy enforces ahead of the sandbox.
var (
	ErrSourceTooLarge     = errors.New("evaluator: source exceeds maximum size")
	ErrLanguageNotAllowed = errors.New("evaluator: language not in allowlist")
)

// ExecutionResult is the outcome of a sandboxed run, truncated to the
// configured output ceiling.
type ExecutionResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	TimedOut   bool
	DurationMs int
}

// ExecuteCode submits source for sandboxed execution and polls until the
// worker reports completion or the poll cap elapses. The sandbox itself is
// expected to enforce no-network-access; this adapter only validates size
// and language before ever dialing out.
func (c *Client) ExecuteCode(ctx context.Context, language, source string) (ExecutionResult, error) {
	if len(source) > c.cfg.MaxSourceBytes {
		return ExecutionResult{}, ErrSourceTooLarge
	}
	if !slices.Contains(c.cfg.AllowedLanguages, language) {
		return ExecutionResult{}, ErrLanguageNotAllowed
	}

	submitCtx, cancel := context.WithTimeout(ctx, c.callTimeout())
	defer cancel()

	req, err := structpb.NewStruct(map[string]interface{}{
		"language": language,
		"source":   source,
	})
	if err != nil {
		return ExecutionResult{}, err
	}
	resp, err := c.rpc.ExecuteCode(submitCtx, req)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("evaluator: submitting execution: %w", err)
	}
	jobID := resp.GetFields()["job_id"].GetStringValue()
	if jobID == "" {
		return ExecutionResult{}, fmt.Errorf("evaluator: worker did not return a job id")
	}

	return c.pollExecution(ctx, jobID)
}

func (c *Client) pollExecution(ctx context.Context, jobID string) (ExecutionResult, error) {
	interval := time.Duration(c.cfg.SandboxPollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	pollCap := time.Duration(c.cfg.SandboxPollCapSeconds) * time.Second
	if pollCap <= 0 {
		pollCap = 30 * time.Second
	}

	deadline := time.Now().Add(pollCap)
	req, err := structpb.NewStruct(map[string]interface{}{"job_id": jobID})
	if err != nil {
		return ExecutionResult{}, err
	}

	for {
		pollCtx, cancel := context.WithTimeout(ctx, c.callTimeout())
		resp, err := c.rpc.PollExecution(pollCtx, req)
		cancel()
		if err != nil {
			return ExecutionResult{}, fmt.Errorf("evaluator: polling execution: %w", err)
		}

		fields := resp.GetFields()
		if fields["done"].GetBoolValue() {
			return ExecutionResult{
				Stdout:     truncate(fields["stdout"].GetStringValue(), c.cfg.MaxOutputBytes),
				Stderr:     truncate(fields["stderr"].GetStringValue(), c.cfg.MaxOutputBytes),
				ExitCode:   int(fields["exit_code"].GetNumberValue()),
				TimedOut:   fields["timed_out"].GetBoolValue(),
				DurationMs: int(fields["duration_ms"].GetNumberValue()),
			}, nil
		}

		if time.Now().After(deadline) {
			return ExecutionResult{TimedOut: true}, nil
		}

		select {
		case <-ctx.Done():
			return ExecutionResult{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes]
}
