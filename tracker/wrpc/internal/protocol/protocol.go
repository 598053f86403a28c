// Package protocol defines the envelopes exchanged between a tracker host and its clients.  Every envelope carries a
// kind tag; requests and their responses are correlated by ID, never by arrival order.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the newest protocol version understood by this package.  Messages without a version are version 1.
const Version = 1

// A Kind discriminates the envelopes in a Message.
type Kind string

const (
	KindRequest Kind = "request"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindNotify  Kind = "notify" // host to client, outside of any request
)

// A Message is the union of all envelope kinds.  Fields that do not apply to the kind are left empty.
type Message struct {
	Kind Kind `json:"kind"`
	V    int  `json:"v,omitempty"`

	// ID correlates a request with its response.
	ID string `json:"id,omitempty"`

	// Path and Input are only used by requests.
	Path  string          `json:"path,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// Result is only used by success responses.
	Result json.RawMessage `json:"result,omitempty"`

	// Error is only used by error responses.
	Error *Error `json:"error,omitempty"`

	// Topic and Data are only used by notifications.
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// A Request is the part of a request message seen by procedures.
type Request struct {
	ID    string
	Path  string
	Input json.RawMessage
}

// Error is the body of an error response.  Only the message crosses the boundary.
type Error struct {
	Message string `json:"message"`
}

// Request returns the request carried by a request message.
func (msg *Message) Request() Request {
	return Request{ID: msg.ID, Path: msg.Path, Input: msg.Input}
}

// Version returns the protocol version of the message.
func (msg *Message) Version() int {
	if msg.V == 0 {
		return 1
	}
	return msg.V
}

// Check verifies that the fields required by the message kind are present.  Unknown kinds are accepted so that other
// traffic can share the channel; callers are expected to ignore them.
func (msg *Message) Check() error {
	switch msg.Kind {
	case KindRequest:
		if msg.ID == `` {
			return errMissing(msg.Kind, `id`)
		}
	case KindSuccess:
		if msg.ID == `` {
			return errMissing(msg.Kind, `id`)
		}
	case KindError:
		if msg.ID == `` {
			return errMissing(msg.Kind, `id`)
		}
		if msg.Error == nil {
			return errMissing(msg.Kind, `error`)
		}
	case KindNotify:
		if msg.Topic == `` {
			return errMissing(msg.Kind, `topic`)
		}
	case ``:
		return errors.New(`message has no kind`)
	}
	return nil
}

func errMissing(kind Kind, field string) error {
	return fmt.Errorf(`%s message is missing %q`, kind, field)
}

// Succ returns a success response to the request with the given ID.  A nil result is encoded as null.
func Succ(id string, result json.RawMessage) *Message {
	if len(result) == 0 {
		result = json.RawMessage(`null`)
	}
	return &Message{Kind: KindSuccess, ID: id, Result: result}
}

// Fail returns an error response to the request with the given ID.
func Fail(id string, message string) *Message {
	return &Message{Kind: KindError, ID: id, Error: &Error{Message: message}}
}

// Notify returns a notification for the given topic.
func Notify(topic string, data json.RawMessage) *Message {
	return &Message{Kind: KindNotify, Topic: topic, Data: data}
}
