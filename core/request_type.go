package core

import "fmt"

// RequestType selects which stage graph a request is routed through. It is a
// closed set; anything else is rejected before a pipeline starts.
type RequestType string

const (
	// RequestExplain routes code through analysis and explanation.
	RequestExplain RequestType = "explain"
	// RequestAnswer routes a problem statement through solution generation.
	RequestAnswer RequestType = "answer"
	// RequestTalk routes a free-form message through conversation.
	RequestTalk RequestType = "talk"
)

// ParseRequestType validates a raw request type string. Unknown values
// return ErrUnknownRequestType wrapped with the offending input.
func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case RequestExplain, RequestAnswer, RequestTalk:
		return RequestType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRequestType, s)
	}
}

// String returns the wire representation of the request type.
func (t RequestType) String() string { return string(t) }
