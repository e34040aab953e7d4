package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/ports"
	"github.com/mikey/ela-assistant/internal/transport"
)

var (
	_ ports.Gateway = (*HTTPGateway)(nil)
	_ ports.Gateway = (*NativeGateway)(nil)
)

type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, req core.Request) (*core.Result, error) {
	switch r := req.(type) {
	case core.LookupWordRequest:
		if r.Word == "locked" {
			return nil, core.StatusError("lookup_word", http.StatusForbidden, nil)
		}
		return core.NewDefinitionResult(&core.DictionaryDefinition{Word: r.Word}), nil
	case core.TranslateTextRequest:
		return core.NewTranslationResult(&core.Translation{Source: r.Text, Text: "訳", Method: core.MethodLLM}), nil
	}
	return core.EmptyAnalysis(), nil
}

func TestHTTPGatewayRPC(t *testing.T) {
	gw := NewHTTPGateway(echoHandler{}, zap.NewNop(), "127.0.0.1:0", time.Second)
	srv := httptest.NewServer(gw)
	defer srv.Close()

	sender := transport.NewHTTPSender(srv.URL, zap.NewNop())

	res, err := sender.Send(context.Background(), core.LookupWordRequest{Word: "run"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "run", res.Definition.Word)

	res, err = sender.Send(context.Background(), core.AnalyzeParagraphRequest{Text: "x"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, core.KindAnalysis, res.Kind)

	_, err = sender.Send(context.Background(), core.LookupWordRequest{Word: "locked"}, time.Second)
	assert.Equal(t, core.Unauthorized, core.KindOf(err))

	require.NoError(t, sender.Ping(context.Background()))
}

func TestHTTPGatewayRejectsUnknownOp(t *testing.T) {
	gw := NewHTTPGateway(echoHandler{}, zap.NewNop(), "127.0.0.1:0", time.Second)

	req := httptest.NewRequest(http.MethodPost, transport.RPCPath, strings.NewReader(`{"id":"1","op":"explode"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPGatewayMetrics(t *testing.T) {
	gw := NewHTTPGateway(echoHandler{}, zap.NewNop(), "127.0.0.1:0", time.Second)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNativeGateway(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, transport.WriteFrame(&in, transport.Envelope{ID: "1", Op: core.OpLookupWord, Word: "run"}))
	require.NoError(t, transport.WriteFrame(&in, transport.Envelope{ID: "2", Op: core.OpTranslateText, Text: "hello"}))
	require.NoError(t, transport.WriteFrame(&in, transport.Envelope{ID: "3", Op: "explode"}))

	outR, outW := io.Pipe()
	gw := NewNativeGateway(echoHandler{}, zap.NewNop(), &in, outW, time.Second)
	require.NoError(t, gw.Start())

	replies := map[string]transport.Reply{}
	for len(replies) < 3 {
		var reply transport.Reply
		require.NoError(t, transport.ReadFrame(outR, &reply))
		replies[reply.ID] = reply
	}

	<-gw.Done()
	require.NoError(t, gw.Stop())

	assert.Equal(t, "run", replies["1"].Result.Definition.Word)
	assert.Equal(t, "訳", replies["2"].Result.Translation.Text)
	require.NotNil(t, replies["3"].Error)
	assert.Contains(t, replies["3"].Error.Message, "unknown operation")

	raw, err := json.Marshal(replies["2"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"method":"llm"`)
}
