// internal/common/camunda/client.go
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chezona/chorom/internal/common/errors"
)

// Client owns the gateway connection used by the job worker and the
// readiness check.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClient connects in plaintext with default timeouts.
func NewClient(address string) (*Client, error) {
	return NewClientWithConfig(&ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         30 * time.Second,
	})
}

// NewClientWithConfig dials the gateway and waits for a topology answer, so
// a returned client is known to reach a broker.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client for %s: %w", config.GatewayAddress, err)
	}

	c := &Client{client: zeebeClient, config: config}

	budget := time.Duration(config.RetryConfig.MaxRetries+1) * (config.ConnectionTimeout + config.RetryConfig.MaxDelay)
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	if _, err := c.ExecuteWithRetry(ctx, c.topology, "topology"); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("zeebe gateway %s unreachable: %w", config.GatewayAddress, err)
	}
	return c, nil
}

func (c *Client) topology(ctx context.Context) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()
	return c.client.NewTopologyCommand().Send(ctx)
}

// GetClient exposes the raw client for opening job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Name() string { return "zeebe" }

// Ping asks the gateway for its topology once, without retries.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.topology(ctx); err != nil {
		return c.mapZeebeError(err, "topology", 0)
	}
	return nil
}

// ExecuteWithRetry runs a gateway command, backing off exponentially on
// transient failures up to RetryConfig.MaxRetries extra attempts.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	retry := c.config.RetryConfig

	for attempt := 0; ; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryableZeebeError(err) || attempt == retry.MaxRetries {
			return nil, c.mapZeebeError(err, operationName, attempt)
		}

		delay := retry.BaseDelay << attempt
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err())
		}
	}
}

// errorClass buckets a gateway error by gRPC status code. Errors that carry
// no status (dial failures wrapped by the client) fall back to their text.
type errorClass int

const (
	classOther errorClass = iota
	classUnavailable
	classTimeout
	classNotFound
)

func classify(err error) errorClass {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return classTimeout
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
			return classUnavailable
		case codes.DeadlineExceeded:
			return classTimeout
		case codes.NotFound:
			return classNotFound
		default:
			return classOther
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "connection refused", "connection reset", "unavailable", "unreachable", "broken pipe"):
		return classUnavailable
	case containsAny(msg, "timeout", "deadline exceeded"):
		return classTimeout
	case strings.Contains(msg, "not found"):
		return classNotFound
	default:
		return classOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isRetryableZeebeError(err error) bool {
	switch classify(err) {
	case classUnavailable, classTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) mapZeebeError(err error, operation string, attempt int) error {
	cause := fmt.Errorf("zeebe %s failed after %d attempt(s): %w", operation, attempt+1, err)

	switch classify(err) {
	case classTimeout:
		return errors.NewTimeoutError("zeebe", cause)
	case classNotFound:
		return errors.NewResourceNotFoundError("zeebe", cause.Error())
	default:
		return errors.NewExternalServiceError("zeebe", cause)
	}
}
