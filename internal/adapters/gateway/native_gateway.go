package gateway

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/transport"
	"go.uber.org/zap"
)

// NativeGateway speaks the browser native messaging protocol on a pair of
// streams, normally stdin and stdout. Requests are served concurrently and
// replies are written in completion order.
type NativeGateway struct {
	handler        core.Handler
	logger         *zap.Logger
	in             io.Reader
	out            io.Writer
	requestTimeout time.Duration

	writeMu sync.Mutex
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewNativeGateway creates a native messaging gateway
func NewNativeGateway(handler core.Handler, logger *zap.Logger, in io.Reader, out io.Writer, requestTimeout time.Duration) *NativeGateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &NativeGateway{
		handler:        handler,
		logger:         logger,
		in:             in,
		out:            out,
		requestTimeout: requestTimeout,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Handle executes a single request
func (g *NativeGateway) Handle(ctx context.Context, req core.Request) (*core.Result, error) {
	return g.handler.Handle(ctx, req)
}

// Start begins reading frames
func (g *NativeGateway) Start() error {
	g.logger.Info("Native messaging gateway starting")
	go g.readLoop()
	return nil
}

// Done is closed once the browser closes its end and pending replies are written
func (g *NativeGateway) Done() <-chan struct{} {
	return g.done
}

// Stop cancels pending requests and waits for their replies
func (g *NativeGateway) Stop() error {
	g.cancel()
	g.wg.Wait()
	return nil
}

func (g *NativeGateway) readLoop() {
	defer close(g.done)
	defer g.wg.Wait()

	for {
		var env transport.Envelope
		if err := transport.ReadFrame(g.in, &env); err != nil {
			if errors.Is(err, io.EOF) {
				g.logger.Info("Browser closed native messaging channel")
			} else {
				g.logger.Error("Failed to read native message", zap.Error(err))
			}
			g.cancel()
			return
		}

		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.serve(env)
		}()
	}
}

func (g *NativeGateway) serve(env transport.Envelope) {
	req, err := env.Request()
	if err != nil {
		g.write(transport.NewReply(env.ID, nil, err))
		return
	}

	ctx := g.ctx
	if g.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
	}

	res, err := g.Handle(ctx, req)
	if err != nil {
		g.logger.Warn("Request failed",
			zap.String("id", env.ID),
			zap.String("op", string(env.Op)),
			zap.Error(err))
	}
	g.write(transport.NewReply(env.ID, res, err))
}

func (g *NativeGateway) write(reply transport.Reply) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	err := transport.WriteFrame(g.out, reply)
	if errors.Is(err, transport.ErrFrameTooLarge) {
		err = transport.WriteFrame(g.out, transport.NewReply(reply.ID, nil,
			core.NewRemoteError(core.MalformedResponse, "native", err)))
	}
	if err != nil {
		g.logger.Error("Failed to write native message", zap.String("id", reply.ID), zap.Error(err))
	}
}
