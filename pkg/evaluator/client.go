// Package evaluator implements the three adapters the assessment engine's
// core packages depend on through narrow local interfaces: the Question
// Generator Adapter (pkg/composer.Generator), the LLM Rubric Adapter
// (pkg/scoring.RubricEvaluator), and the Code Execution Proxy. All three
// speak to an out-of-process evaluator worker over the hand-written
// EvaluatorService gRPC contract in evaluatorpb.
package evaluator

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/evaluator/evaluatorpb"
	"github.com/assessment-platform/enginer/pkg/rag"
	"github.com/assessment-platform/enginer/pkg/retry"
)

// Client is the shared gRPC connection and configuration backing every
// adapter in this package.
type Client struct {
	conn    *grpc.ClientConn
	rpc     evaluatorpb.EvaluatorServiceClient
	embed   rag.Embedder
	cfg     *config.EvaluatorConfig
	retryer retry.Policy
}

// Dial opens the connection to the evaluator worker and returns a Client
// ready to back composer.Generator, scoring.RubricEvaluator, and the code
// execution proxy. embed is used to compute the embedding attached to a
// freshly generated question; it is not round-tripped through the worker
// since the corpus-wide similarity index lives in this process, not the
// worker's.
func Dial(cfg *config.EvaluatorConfig, embed rag.Embedder) (*Client, error) {
	conn, err := grpc.NewClient(cfg.ServiceAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("evaluator: dialing %s: %w", cfg.ServiceAddr, err)
	}
	return &Client{
		conn:  conn,
		rpc:   evaluatorpb.NewEvaluatorServiceClient(conn),
		embed: embed,
		cfg:   cfg,
		retryer: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Duration(cfg.RetryBaseDelaySeconds) * time.Second,
			MaxDelay:    time.Duration(cfg.RetryMaxDelaySeconds) * time.Second,
			Classify:    retry.ClassifyError,
		},
	}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) callTimeout() time.Duration {
	return time.Duration(c.cfg.CallTimeoutSeconds) * time.Second
}
