// Package wrpc implements a typed request/response bridge between a host process and a sandboxed client, such as an
// editor extension and its webview.  The host composes procedures into a Table and answers requests with a
// Dispatcher; the client issues calls with a Client and matches responses to callers by request ID.
//
//	table := wrpc.MustCompose(wrpc.Router{
//		"greet": wrpc.Define(wrpc.Struct[Greeting](), greet),
//		"todo": wrpc.Router{
//			"fetchTodos": wrpc.Define(wrpc.None(), fetchTodos),
//		},
//	})
//	go wrpc.NewDispatcher(table).Serve(ctx, hostConn)
//
//	client := wrpc.NewClient(clientConn)
//	go client.Run(ctx)
//	msg, err := wrpc.Call(ctx, client, wrpc.Path[Greeting, string](`greet`), Greeting{Name: `Ada`})
//
// Every request gets exactly one response.  Unknown paths, invalid input and failing resolvers all produce an error
// response, and nothing a client sends can crash the host.
package wrpc
