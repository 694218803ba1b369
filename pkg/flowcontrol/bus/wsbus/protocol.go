// Package wsbus is the concrete bus transport: a single-process
// websocket broker plus a bus.Client implementation that talks to it.
// The core never imports this package directly — only main-wiring code
// does, so the core stays testable against a fake bus.Client.
package wsbus

// frame is the wire format exchanged over the websocket connection.
// Frame distinguishes control frames (register/ping/pong) from data
// frames (publish/response).
type frame struct {
	Frame           string         `json:"frame"` // "register" | "publish" | "response" | "ping" | "pong"
	ID              string         `json:"id,omitempty"`
	MsgKind         string         `json:"msg_kind,omitempty"`
	Source          string         `json:"source,omitempty"`
	Target          string         `json:"target,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
	ClientName      string         `json:"client_name,omitempty"`
	Classifications []string       `json:"classifications,omitempty"`
	PubList         []string       `json:"pub_list,omitempty"`
	SubList         []string       `json:"sub_list,omitempty"`
	Tag             map[string]any `json:"tag,omitempty"`
}
