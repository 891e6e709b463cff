// Package llm defines the provider-neutral contract for structured JSON
// generation and the failure taxonomy every provider maps into.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// FieldKind is the JSON type of one top-level response property.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldStringArray
)

type Field struct {
	Name        string
	Kind        FieldKind
	Enum        []string
	Description string
}

// Schema describes a flat JSON object whose fields are all required.
type Schema struct {
	Name   string
	Fields []Field
}

func (s Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Generator asks an analysis provider for a JSON object matching schema and
// returns the raw text of the first candidate. Implementations make exactly
// one attempt.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema Schema) (string, error)
	Provider() string
}

type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport: the request never produced a response (network, timeout).
	KindTransport
	// KindUpstream: the provider answered with an explicit error payload.
	KindUpstream
	// KindMalformed: a response arrived but did not have the expected shape.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUpstream:
		return "upstream"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s error (%d): %s", e.Provider, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Transport(provider string, err error) *Error {
	return &Error{Kind: KindTransport, Provider: provider, Err: err}
}

func Upstream(provider string, status int, message string) *Error {
	return &Error{Kind: KindUpstream, Provider: provider, Status: status, Message: message}
}

func Malformed(provider string, err error) *Error {
	return &Error{Kind: KindMalformed, Provider: provider, Err: err}
}

// KindOf classifies err. Context expiry counts as transport failure.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var le *Error
	if errors.As(err, &le) && le != nil {
		return le.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	return KindUnknown
}

// UpstreamMessage returns the provider's own error text when err is upstream.
func UpstreamMessage(err error) string {
	var le *Error
	if errors.As(err, &le) && le != nil && le.Kind == KindUpstream {
		return le.Message
	}
	return ""
}
