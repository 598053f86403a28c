// Package printf is a tiny procedure used by the example to show a validated wrpc procedure.
package printf

import (
	"fmt"

	"github.com/swdunlop/tracker-go/tracker/wrpc"
)

// Procedure formats a message with fmt.Sprintf.
var Procedure = wrpc.Define(wrpc.Struct[Request](), Call)

// Path is the typed path of Procedure when it is mounted as "printf".
var Path = wrpc.Path[Request, Response](`printf`)

// Call formats req.
func Call(_ *wrpc.Scope, req Request) (ret Response, err error) {
	ret.String = fmt.Sprintf(req.Message, req.Info...)
	return
}

type Request struct {
	Message string `json:"msg" validate:"required"`
	Info    []any  `json:"info"`
}

type Response struct {
	String string `json:"str"`
}
