package mock

import (
	"context"
	"sync"

	"github.com/zjrosen/clanbot/internal/platform"
)

// Response is one recorded answer.
type Response struct {
	Kind      string // "reply", "update", "form", "defer", "followup"
	Message   platform.Message
	Form      platform.Form
	Ephemeral bool
}

// Responder records every response a handler sends.
type Responder struct {
	mu        sync.Mutex
	responses []Response
	// Err, when set, is returned from every call.
	Err error
}

var _ platform.Responder = (*Responder)(nil)

// NewResponder creates an empty recorder.
func NewResponder() *Responder { return &Responder{} }

func (r *Responder) add(resp Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	return r.Err
}

func (r *Responder) Reply(ctx context.Context, msg platform.Message, ephemeral bool) error {
	return r.add(Response{Kind: "reply", Message: msg, Ephemeral: ephemeral})
}

func (r *Responder) Update(ctx context.Context, msg platform.Message) error {
	return r.add(Response{Kind: "update", Message: msg})
}

func (r *Responder) ShowForm(ctx context.Context, form platform.Form) error {
	return r.add(Response{Kind: "form", Form: form})
}

func (r *Responder) Defer(ctx context.Context, ephemeral bool) error {
	return r.add(Response{Kind: "defer", Ephemeral: ephemeral})
}

func (r *Responder) FollowUp(ctx context.Context, msg platform.Message, ephemeral bool) error {
	return r.add(Response{Kind: "followup", Message: msg, Ephemeral: ephemeral})
}

// Responses returns everything recorded so far.
func (r *Responder) Responses() []Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Response(nil), r.responses...)
}

// Last returns the most recent response.
func (r *Responder) Last() (Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return Response{}, false
	}
	return r.responses[len(r.responses)-1], true
}

// Text returns the content plus embed titles and descriptions of the last
// message response, for substring assertions.
func (r *Responder) Text() string {
	last, ok := r.Last()
	if !ok {
		return ""
	}
	text := last.Message.Content
	for _, e := range last.Message.Embeds {
		text += "\n" + e.Title + "\n" + e.Description
		for _, f := range e.Fields {
			text += "\n" + f.Name + "\n" + f.Value
		}
	}
	return text
}
