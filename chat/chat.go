// Package chat is the boundary between the pipeline and the chat platform.
package chat

import (
	"context"
	"sync"

	"github.com/teranos/issuebot/render"
)

// Scopes a message can arrive from, as Slack reports channel_type
const (
	ScopeChannel = "channel" // public channel
	ScopeGroup   = "group"   // private channel
	ScopeIM      = "im"      // direct message
	ScopeMPIM    = "mpim"    // group direct message
)

// Conversation identifies where a message came from and where replies go
type Conversation struct {
	TeamID   string
	Channel  string
	User     string
	ThreadTS string // set when replies should land in a thread
}

// Message is one inbound chat message
type Message struct {
	Text         string
	Conversation Conversation
	Scope        string
	TS           string
}

// Handler consumes inbound messages
type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, msg Message)

// HandleMessage implements Handler
func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// Replier delivers one payload to a conversation
type Replier interface {
	Reply(ctx context.Context, conv Conversation, payload render.Payload) error
}

// ReplierFunc adapts a function to Replier
type ReplierFunc func(ctx context.Context, conv Conversation, payload render.Payload) error

// Reply implements Replier
func (f ReplierFunc) Reply(ctx context.Context, conv Conversation, payload render.Payload) error {
	return f(ctx, conv, payload)
}

// Collector is a Replier that keeps payloads in memory, in arrival order
type Collector struct {
	mu       sync.Mutex
	payloads []render.Payload
}

// Reply implements Replier
func (c *Collector) Reply(_ context.Context, _ Conversation, payload render.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

// Payloads returns a copy of everything collected so far
func (c *Collector) Payloads() []render.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]render.Payload(nil), c.payloads...)
}
