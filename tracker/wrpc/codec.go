package wrpc

import (
	"encoding/json"
	"fmt"

	"github.com/swdunlop/tracker-go/tracker/wrpc/internal/protocol"
)

// A Codec translates envelopes to and from frames.  JSON is used for text frames and MessagePack for binary frames;
// a peer is always answered in the encoding it used.
type Codec interface {
	Encode(msg *protocol.Message) ([]byte, error)
	Decode(data []byte, msg *protocol.Message) error
	Binary() bool
}

// JSON is the codec used for text frames.
var JSON Codec = jsonCodec{}

// MessagePack is the codec used for binary frames.
var MessagePack Codec = msgpCodec{}

func codecFor(binary bool) Codec {
	if binary {
		return MessagePack
	}
	return JSON
}

type jsonCodec struct{}

func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(msg *protocol.Message) ([]byte, error) { return json.Marshal(msg) }

func (jsonCodec) Decode(data []byte, msg *protocol.Message) error {
	*msg = protocol.Message{}
	return json.Unmarshal(data, msg)
}

type msgpCodec struct{}

func (msgpCodec) Binary() bool { return true }

func (msgpCodec) Encode(msg *protocol.Message) ([]byte, error) { return msg.MarshalMsg(nil) }

func (msgpCodec) Decode(data []byte, msg *protocol.Message) error {
	rest, err := msg.UnmarshalMsg(data)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf(`%d trailing bytes after message`, len(rest))
	}
	return nil
}
