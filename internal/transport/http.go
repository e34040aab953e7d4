package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"go.uber.org/zap"
)

// RPCPath and HealthPath are served by the HTTP gateway
const (
	RPCPath    = "/v1/rpc"
	HealthPath = "/healthz"
)

const maxReplySize = 8 << 20

// HTTPSender reaches a running ela-server over HTTP. A refused connection
// marks the channel closed until Ping succeeds again.
type HTTPSender struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
	dead     atomic.Bool
}

// NewHTTPSender creates a sender for the server at endpoint
func NewHTTPSender(endpoint string, logger *zap.Logger) *HTTPSender {
	return &HTTPSender{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
		logger:   logger,
	}
}

// Send posts req and waits for the reply within timeout
func (s *HTTPSender) Send(ctx context.Context, req core.Request, timeout time.Duration) (*core.Result, error) {
	if s.dead.Load() {
		return nil, ErrChannelClosed
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	env := NewEnvelope(req)
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+RPCPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.StatusError(string(env.Op), resp.StatusCode, errors.New(strings.TrimSpace(string(data))))
	}

	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, core.NewRemoteError(core.MalformedResponse, string(env.Op), err)
	}
	if reply.ID != env.ID {
		return nil, core.NewRemoteError(core.MalformedResponse, string(env.Op),
			fmt.Errorf("reply id %q does not match request %q", reply.ID, env.ID))
	}
	return reply.Unpack(env.Op)
}

func (s *HTTPSender) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return core.ErrTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		if !s.dead.Swap(true) {
			s.logger.Warn("Server refused connection, channel closed", zap.String("endpoint", s.endpoint))
		}
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return fmt.Errorf("request failed: %w", err)
}

// Alive reports whether the server was reachable at the last attempt
func (s *HTTPSender) Alive() bool {
	return !s.dead.Load()
}

// Ping checks the health endpoint and re-opens the channel on success
func (s *HTTPSender) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+HealthPath, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return s.classify(ctx, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	s.dead.Store(false)
	return nil
}
