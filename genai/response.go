package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

// ResponseKind discriminates the Response union.
type ResponseKind int

const (
	// ResponseText is a single block of generated text.
	ResponseText ResponseKind = iota
	// ResponseParts is generated text delivered in ordered segments.
	ResponseParts
	// ResponseRaw is an unparsed provider payload.
	ResponseRaw
)

// String returns the string representation of the kind.
func (k ResponseKind) String() string {
	switch k {
	case ResponseText:
		return "text"
	case ResponseParts:
		return "parts"
	case ResponseRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Response is the tagged result of a generation call. Exactly one of the
// three payloads is set, identified by Kind.
type Response struct {
	kind  ResponseKind
	text  string
	parts []string
	raw   []byte
}

// NewTextResponse creates a text response.
func NewTextResponse(text string) Response {
	return Response{kind: ResponseText, text: text}
}

// NewPartsResponse creates a segmented response.
func NewPartsResponse(parts ...string) Response {
	return Response{kind: ResponseParts, parts: parts}
}

// NewRawResponse creates a response holding the unparsed provider
// payload.
func NewRawResponse(raw []byte) Response {
	return Response{kind: ResponseRaw, raw: raw}
}

// Kind returns the payload discriminator.
func (r Response) Kind() ResponseKind { return r.kind }

// Text returns the generated text. Segmented responses are joined in
// order; raw responses return the payload as a string.
func (r Response) Text() string {
	switch r.kind {
	case ResponseParts:
		return strings.Join(r.parts, "")
	case ResponseRaw:
		return string(r.raw)
	default:
		return r.text
	}
}

// Parts returns the ordered segments of a parts response, or a single
// element for the other kinds.
func (r Response) Parts() []string {
	if r.kind == ResponseParts {
		return r.parts
	}
	return []string{r.Text()}
}

// Raw returns the unparsed payload of a raw response and nil otherwise.
func (r Response) Raw() []byte {
	if r.kind == ResponseRaw {
		return r.raw
	}
	return nil
}

// Empty reports whether the response carries no content.
func (r Response) Empty() bool {
	switch r.kind {
	case ResponseParts:
		return len(r.parts) == 0
	case ResponseRaw:
		return len(r.raw) == 0
	default:
		return r.text == ""
	}
}

type responseJSON struct {
	Kind  string   `json:"kind"`
	Text  string   `json:"text,omitempty"`
	Parts []string `json:"parts,omitempty"`
	Raw   []byte   `json:"raw,omitempty"`
}

// MarshalJSON encodes the union with its discriminator, so cached
// responses round-trip through any byte store.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(responseJSON{
		Kind:  r.kind.String(),
		Text:  r.text,
		Parts: r.parts,
		Raw:   r.raw,
	})
}

// UnmarshalJSON decodes the union.
func (r *Response) UnmarshalJSON(data []byte) error {
	var body responseJSON
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	switch body.Kind {
	case "text":
		*r = NewTextResponse(body.Text)
	case "parts":
		*r = NewPartsResponse(body.Parts...)
	case "raw":
		*r = NewRawResponse(body.Raw)
	default:
		return fmt.Errorf("genai: unknown response kind %q", body.Kind)
	}
	return nil
}

// APIError is a structured provider error. It implements
// resilience.Classifier so retry and rotation decisions never depend on
// message text.
type APIError struct {
	// StatusCode is the HTTP status of the provider response.
	StatusCode int

	// Code is the provider's machine-readable error code, if any.
	Code string

	// Message is the provider's human-readable message.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("genai: api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("genai: api error %d: %s", e.StatusCode, e.Message)
}

// ErrorKind implements resilience.Classifier.
func (e *APIError) ErrorKind() resilience.Kind {
	switch {
	case e.StatusCode == 429:
		return resilience.KindRateLimit
	case e.StatusCode == 408, e.StatusCode >= 500:
		return resilience.KindTransient
	default:
		return resilience.KindTerminal
	}
}

var _ resilience.Classifier = (*APIError)(nil)
