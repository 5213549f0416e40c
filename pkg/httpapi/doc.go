// Package httpapi exposes a bridge host over HTTP so an out-of-process
// runtime can act as the boundary.
//
// Routes:
//
//	GET    /handles                  list active handles
//	GET    /handles/{id}             handle metadata
//	POST   /handles/{id}/{method}    invoke; body is a JSON array of encoded arguments
//	DELETE /handles/{id}             release
//	GET    /metrics                  Prometheus metrics, when a gatherer is set
//
// Each argument in the invoke body is itself a string of JSON text, for
// example ["{\"id\":\"a1\"}", "3"]. A null element is sent as an empty
// argument, which is only valid for ignored parameters.
package httpapi
