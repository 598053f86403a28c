package protocol

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestMessagePack(t *testing.T) {
	for _, tc := range []struct {
		name string
		msg  *Message
		want string
	}{
		{`request`, &Message{Kind: KindRequest, V: Version, ID: `1`, Path: `todo.storeTodo`, Input: json.RawMessage(`{"title":"x","tags":["a",2,true,null]}`)},
			`{"kind":"request","v":1,"id":"1","path":"todo.storeTodo","input":{"title":"x","tags":["a",2,true,null]}}`},
		{`success`, Succ(`2`, nil), `{"kind":"success","id":"2","result":null}`},
		{`error`, Fail(`3`, `Todo not found`), `{"kind":"error","id":"3","error":{"message":"Todo not found"}}`},
		{`notify`, Notify(`todosUpdated`, json.RawMessage(`4`)), `{"kind":"notify","topic":"todosUpdated","data":4}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.msg.MarshalMsg(nil)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var msg Message
			rest, err := msg.UnmarshalMsg(b)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(rest) != 0 {
				t.Fatalf("%d trailing bytes", len(rest))
			}
			if err := msg.Check(); err != nil {
				t.Fatalf("check: %v", err)
			}
			js, err := json.Marshal(&msg)
			if err != nil {
				t.Fatalf("json: %v", err)
			}
			if !sameJSON(t, string(js), tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, js)
			}
		})
	}
}

func TestMessagePackNumbers(t *testing.T) {
	input := `{"big":9007199254740993,"max":18446744073709551615,"min":-9223372036854775808,"half":1.5,"list":[9007199254740995]}`
	b, err := (&Message{Kind: KindRequest, ID: `1`, Input: json.RawMessage(input)}).MarshalMsg(nil)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var msg Message
	if _, err := msg.UnmarshalMsg(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(msg.Input))
	dec.UseNumber()
	var got struct {
		Big  json.Number   `json:"big"`
		Max  json.Number   `json:"max"`
		Min  json.Number   `json:"min"`
		Half json.Number   `json:"half"`
		List []json.Number `json:"list"`
	}
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("decode %s: %v", msg.Input, err)
	}
	for _, tc := range []struct{ got, want json.Number }{
		{got.Big, `9007199254740993`},
		{got.Max, `18446744073709551615`},
		{got.Min, `-9223372036854775808`},
	} {
		if tc.got != tc.want {
			t.Errorf("expected %v, got %v", tc.want, tc.got)
		}
	}
	if f, err := got.Half.Float64(); err != nil || f != 1.5 {
		t.Errorf("expected 1.5, got %v", got.Half)
	}
	if len(got.List) != 1 || got.List[0] != `9007199254740995` {
		t.Errorf("expected the list to keep its integer, got %v", got.List)
	}
}

func TestCheck(t *testing.T) {
	for _, tc := range []struct {
		msg Message
		ok  bool
	}{
		{Message{Kind: KindRequest, ID: `1`}, true},
		{Message{Kind: KindRequest}, false},
		{Message{Kind: KindSuccess}, false},
		{Message{Kind: KindError, ID: `1`}, false},
		{Message{Kind: KindNotify}, false},
		{Message{Kind: `other`}, true},
		{Message{}, false},
	} {
		err := tc.msg.Check()
		if (err == nil) != tc.ok {
			t.Errorf("%+v: unexpected check result %v", tc.msg, err)
		}
	}
	if v := (&Message{}).Version(); v != 1 {
		t.Errorf("expected an unversioned message to be version 1, got %d", v)
	}
}

func sameJSON(t *testing.T, a, b string) bool {
	t.Helper()
	var x, y any
	if err := json.Unmarshal([]byte(a), &x); err != nil {
		t.Fatalf("%s: %v", a, err)
	}
	if err := json.Unmarshal([]byte(b), &y); err != nil {
		t.Fatalf("%s: %v", b, err)
	}
	xs, _ := json.Marshal(x)
	ys, _ := json.Marshal(y)
	return string(xs) == string(ys)
}
