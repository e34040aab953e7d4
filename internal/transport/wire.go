// Package transport carries typed requests between the page-side orchestrator
// and the service that issues outbound calls.
package transport

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mikey/ela-assistant/internal/core"
)

var (
	// ErrChannelClosed is returned once the counterpart is gone
	ErrChannelClosed = core.ErrChannelClosed
	// ErrUnknownOp is returned for envelopes naming no known operation
	ErrUnknownOp = errors.New("unknown operation")
)

// Envelope is a request on the wire
type Envelope struct {
	ID   string         `json:"id"`
	Op   core.Operation `json:"op"`
	Word string         `json:"word,omitempty"`
	Text string         `json:"text,omitempty"`
}

// Reply answers one Envelope; exactly one of Result and Error is set
type Reply struct {
	ID     string       `json:"id"`
	Result *core.Result `json:"result,omitempty"`
	Error  *WireError   `json:"error,omitempty"`
}

// WireError is a classified failure on the wire
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// NewEnvelope wraps req with a fresh request ID
func NewEnvelope(req core.Request) Envelope {
	env := Envelope{ID: uuid.NewString(), Op: req.Op()}
	switch r := req.(type) {
	case core.LookupWordRequest:
		env.Word = r.Word
	case core.TranslateTextRequest:
		env.Text = r.Text
	case core.AnalyzeParagraphRequest:
		env.Text = r.Text
	}
	return env
}

// Request decodes the typed request carried by the envelope
func (e Envelope) Request() (core.Request, error) {
	switch e.Op {
	case core.OpLookupWord:
		return core.LookupWordRequest{Word: e.Word}, nil
	case core.OpTranslateText:
		return core.TranslateTextRequest{Text: e.Text}, nil
	case core.OpAnalyzeParagraph:
		return core.AnalyzeParagraphRequest{Text: e.Text}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, e.Op)
}

// NewReply builds the reply to request id
func NewReply(id string, res *core.Result, err error) Reply {
	if err == nil {
		return Reply{ID: id, Result: res}
	}
	we := &WireError{Kind: core.KindOf(err).String(), Message: err.Error()}
	var re *core.RemoteError
	if errors.As(err, &re) {
		we.Status = re.StatusCode
	}
	return Reply{ID: id, Error: we}
}

// Unpack returns the result or the classified error of a reply
func (r Reply) Unpack(op core.Operation) (*core.Result, error) {
	if r.Error != nil {
		return nil, &core.RemoteError{
			Kind:       core.ParseErrorKind(r.Error.Kind),
			Op:         string(op),
			StatusCode: r.Error.Status,
			Err:        errors.New(r.Error.Message),
		}
	}
	if r.Result == nil {
		return nil, core.NewRemoteError(core.MalformedResponse, string(op), errors.New("empty reply"))
	}
	return r.Result, nil
}
