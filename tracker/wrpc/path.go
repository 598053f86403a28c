package wrpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// A Path names a procedure and records its input and output types, so that calls through it are checked at compile
// time.  Paths are declared once, next to the types they use, and shared by hosts and clients.
//
//	var FetchTodos = wrpc.Path[wrpc.Void, []todo.Todo](`todo.fetchTodos`)
type Path[I, O any] string

func (p Path[I, O]) String() string { return string(p) }

// Call invokes the procedure at path with input and decodes its result.
func Call[I, O any](ctx context.Context, client *Client, path Path[I, O], input I) (O, error) {
	var out O
	var in any = input
	if _, ok := in.(Void); ok {
		in = nil
	}
	raw, err := client.Call(ctx, string(path), in)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	if err != nil {
		return out, fmt.Errorf(`%w while decoding result of %s`, err, path)
	}
	return out, nil
}
