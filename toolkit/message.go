// Package toolkit defines the contract between PDF tools and their
// hosts: parameter schemas with localized labels, the ordered message
// stream a tool emits, and a registry the HTTP, MCP and CLI surfaces
// all serve from.
package toolkit

import (
	"encoding/json"
	"fmt"
)

// MessageKind discriminates the three payload shapes a tool can emit.
type MessageKind string

const (
	MessageText MessageKind = "text"
	MessageJSON MessageKind = "json"
	MessageBlob MessageKind = "blob"
)

// BlobMeta describes a binary payload.
type BlobMeta struct {
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

// Message is one element of a tool's output stream. Exactly one of
// Text, JSON or Blob is populated, according to Kind.
type Message struct {
	Kind MessageKind     `json:"kind"`
	Text string          `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
	Blob []byte          `json:"-"`
	Meta BlobMeta        `json:"meta,omitempty"`
}

// TextMessage builds a text message.
func TextMessage(text string) Message {
	return Message{Kind: MessageText, Text: text}
}

// JSONMessage marshals v into a JSON message.
func JSONMessage(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal JSON message: %w", err)
	}
	return Message{Kind: MessageJSON, JSON: data}, nil
}

// BlobMessage builds a binary message with its metadata.
func BlobMessage(blob []byte, meta BlobMeta) Message {
	return Message{Kind: MessageBlob, Blob: blob, Meta: meta}
}

// EmitFunc receives tool output messages in emission order. Emission
// order is part of each tool's contract: a tool that sends its summary
// before its blobs must be observed in that order.
type EmitFunc func(Message) error

// Collector is an EmitFunc target that buffers the whole stream, used
// by synchronous hosts.
type Collector struct {
	Messages []Message
}

// Emit appends a message to the collector.
func (c *Collector) Emit(msg Message) error {
	c.Messages = append(c.Messages, msg)
	return nil
}

// Texts returns the text payloads in emission order.
func (c *Collector) Texts() []string {
	var out []string
	for _, msg := range c.Messages {
		if msg.Kind == MessageText {
			out = append(out, msg.Text)
		}
	}
	return out
}

// Blobs returns the blob messages in emission order.
func (c *Collector) Blobs() []Message {
	var out []Message
	for _, msg := range c.Messages {
		if msg.Kind == MessageBlob {
			out = append(out, msg)
		}
	}
	return out
}
