package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tinylib/msgp/msgp"
)

//msgp:ignore Message

// MarshalMsg implements msgp.Marshaler.  Messages are encoded as maps keyed by the same names as their JSON encoding,
// and JSON payloads are re-encoded as MessagePack values so that clients see native MessagePack throughout.
func (msg *Message) MarshalMsg(b []byte) ([]byte, error) {
	n := uint32(1)
	for _, present := range []bool{
		msg.V != 0, msg.ID != ``, msg.Path != ``, msg.Topic != ``,
		len(msg.Input) > 0, len(msg.Result) > 0, len(msg.Data) > 0, msg.Error != nil,
	} {
		if present {
			n++
		}
	}
	b = msgp.AppendMapHeader(b, n)
	b = msgp.AppendString(b, `kind`)
	b = msgp.AppendString(b, string(msg.Kind))
	if msg.V != 0 {
		b = msgp.AppendString(b, `v`)
		b = msgp.AppendInt(b, msg.V)
	}
	for _, field := range [...]struct{ key, value string }{
		{`id`, msg.ID}, {`path`, msg.Path}, {`topic`, msg.Topic},
	} {
		if field.value != `` {
			b = msgp.AppendString(b, field.key)
			b = msgp.AppendString(b, field.value)
		}
	}
	var err error
	for _, field := range [...]struct {
		key   string
		value json.RawMessage
	}{
		{`input`, msg.Input}, {`result`, msg.Result}, {`data`, msg.Data},
	} {
		if len(field.value) == 0 {
			continue
		}
		b = msgp.AppendString(b, field.key)
		b, err = appendJSON(b, field.value)
		if err != nil {
			return b, fmt.Errorf(`%w while encoding %s`, err, field.key)
		}
	}
	if msg.Error != nil {
		b = msgp.AppendString(b, `error`)
		b = msgp.AppendMapHeader(b, 1)
		b = msgp.AppendString(b, `message`)
		b = msgp.AppendString(b, msg.Error.Message)
	}
	return b, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.  Unknown keys are skipped.
func (msg *Message) UnmarshalMsg(b []byte) ([]byte, error) {
	*msg = Message{}
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for i := uint32(0); i < n; i++ {
		var key []byte
		key, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return b, err
		}
		switch string(key) {
		case `kind`:
			var kind string
			kind, b, err = msgp.ReadStringBytes(b)
			msg.Kind = Kind(kind)
		case `v`:
			msg.V, b, err = msgp.ReadIntBytes(b)
		case `id`:
			msg.ID, b, err = msgp.ReadStringBytes(b)
		case `path`:
			msg.Path, b, err = msgp.ReadStringBytes(b)
		case `topic`:
			msg.Topic, b, err = msgp.ReadStringBytes(b)
		case `input`:
			msg.Input, b, err = readJSON(b)
		case `result`:
			msg.Result, b, err = readJSON(b)
		case `data`:
			msg.Data, b, err = readJSON(b)
		case `error`:
			msg.Error = new(Error)
			b, err = msg.Error.unmarshalMsg(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return b, fmt.Errorf(`%w while decoding %q`, err, key)
		}
	}
	return b, nil
}

func (e *Error) unmarshalMsg(b []byte) ([]byte, error) {
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for i := uint32(0); i < n; i++ {
		var key []byte
		key, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return b, err
		}
		if string(key) == `message` {
			e.Message, b, err = msgp.ReadStringBytes(b)
		} else {
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return b, err
		}
	}
	return b, nil
}

func appendJSON(b []byte, raw json.RawMessage) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	err := dec.Decode(&value)
	if err != nil {
		return b, err
	}
	return appendValue(b, value)
}

// appendValue appends a value decoded by a json.Decoder using UseNumber.  Numbers that are integers stay integers, so
// values beyond the precision of a float64 survive.
func appendValue(b []byte, value any) ([]byte, error) {
	var err error
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return msgp.AppendInt64(b, i), nil
		}
		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return msgp.AppendUint64(b, u), nil
		}
		f, err := v.Float64()
		if err != nil {
			return b, err
		}
		return msgp.AppendFloat64(b, f), nil
	case map[string]any:
		b = msgp.AppendMapHeader(b, uint32(len(v)))
		for key, item := range v {
			b = msgp.AppendString(b, key)
			b, err = appendValue(b, item)
			if err != nil {
				return b, err
			}
		}
		return b, nil
	case []any:
		b = msgp.AppendArrayHeader(b, uint32(len(v)))
		for _, item := range v {
			b, err = appendValue(b, item)
			if err != nil {
				return b, err
			}
		}
		return b, nil
	default:
		return msgp.AppendIntf(b, v)
	}
}

func readJSON(b []byte) (json.RawMessage, []byte, error) {
	var buf bytes.Buffer
	rest, err := msgp.UnmarshalAsJSON(&buf, b)
	if err != nil {
		return nil, rest, err
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), rest, nil
}
