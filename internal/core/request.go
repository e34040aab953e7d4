package core

// Operation names a request variant on the wire
type Operation string

const (
	OpLookupWord       Operation = "lookup_word"
	OpTranslateText    Operation = "translate_text"
	OpAnalyzeParagraph Operation = "analyze_paragraph"
)

// Request is a typed message sent to the process issuing outbound calls.
// The set of implementations is closed.
type Request interface {
	Op() Operation
	isRequest()
}

// LookupWordRequest asks for a dictionary definition
type LookupWordRequest struct {
	Word string
}

// TranslateTextRequest asks for a translation of a paragraph
type TranslateTextRequest struct {
	Text string
}

// AnalyzeParagraphRequest asks for part-of-speech analysis of a paragraph
type AnalyzeParagraphRequest struct {
	Text string
}

func (LookupWordRequest) Op() Operation       { return OpLookupWord }
func (TranslateTextRequest) Op() Operation    { return OpTranslateText }
func (AnalyzeParagraphRequest) Op() Operation { return OpAnalyzeParagraph }

func (LookupWordRequest) isRequest()       {}
func (TranslateTextRequest) isRequest()    {}
func (AnalyzeParagraphRequest) isRequest() {}
