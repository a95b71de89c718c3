// Package wasm contains the plugin side of the Wasm boundary: the exported
// malloc and command functions and the Handler they forward requests to.
package wasm

var handler Handler = HandlerFunc(func(string, []byte) []byte {
	return []byte("no handler set, call wasm.Init() in the plugin code to set a handler")
})

// Handler is the bridge between the WebAssembly exports and the Wasm plugin.
type Handler interface {
	// Handle gets called for every host call to the Wasm plugin. The returned
	// bytes are handed to the host as they are.
	Handle(method string, req []byte) (resp []byte)
}

// HandlerFunc is a function type that implements the Handler interface.
type HandlerFunc func(method string, req []byte) (resp []byte)

func (f HandlerFunc) Handle(method string, req []byte) (resp []byte) { return f(method, req) }

// Init needs to be called in an init function in the wasm plugin to initialize
// the wasm call handler.
func Init(h Handler) {
	handler = h
}

// dispatch splits the bytes written by the host into the method name and the
// request and passes them to the handler.
func dispatch(input []byte, methodSize int) []byte {
	if methodSize > len(input) {
		methodSize = len(input)
	}
	return handler.Handle(string(input[:methodSize]), input[methodSize:])
}
