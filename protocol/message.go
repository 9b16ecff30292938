// Package protocol defines the wire messages pushed from the dev server to
// connected clients, and the classification of file changes into them.
package protocol

import (
	"encoding/json"
	"time"
)

// Message types, carried in the "type" field of every frame.
const (
	TypeScriptUpdate = "hmr:update"
	TypeStyleUpdate  = "css:update"
	TypeFullReload   = "full-reload"
)

// Message is a single push-channel frame. The channel is fire-and-forget:
// no acknowledgement frames, no queuing for disconnected clients.
type Message struct {
	Type      string `json:"type"`
	Module    string `json:"module,omitempty"`
	URL       string `json:"url,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ScriptUpdate builds an hmr:update message for a changed module.
func ScriptUpdate(module string, at time.Time) Message {
	return Message{Type: TypeScriptUpdate, Module: module, Timestamp: at.UnixMilli()}
}

// StyleUpdate builds a css:update message for a changed stylesheet.
func StyleUpdate(url string, at time.Time) Message {
	return Message{Type: TypeStyleUpdate, URL: url, Timestamp: at.UnixMilli()}
}

// FullReload builds a full-reload message.
func FullReload(at time.Time) Message {
	return Message{Type: TypeFullReload, Timestamp: at.UnixMilli()}
}

// Encode serializes the message to a JSON text frame.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a JSON text frame into a Message.
func Decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}
