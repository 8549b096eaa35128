package transport

import (
	"context"
	"sync/atomic"

	"OptimaChat/internal/conversation"
)

// defaultOfflineReplies are the canned replies served while the backend is
// unreachable, rotated in order.
var defaultOfflineReplies = []string{
	"The assistant is working in offline mode right now. Leave your question and contact details and we will get back to you, or reach us at t.me/optima_ai.",
	"The assistant is temporarily offline. You can still browse our services, or message us at t.me/optima_ai.",
}

// Offline serves canned replies without any network call.
type Offline struct {
	replies []string
	next    atomic.Uint64
}

// NewOffline creates an offline transport. With no replies given, the
// defaults are used.
func NewOffline(replies ...string) *Offline {
	if len(replies) == 0 {
		replies = defaultOfflineReplies
	}
	return &Offline{replies: replies}
}

// Send returns the next canned reply.
func (o *Offline) Send(_ context.Context, _ []conversation.Message) (string, error) {
	n := o.next.Add(1) - 1
	return o.replies[n%uint64(len(o.replies))], nil
}

// Available always reports true; the offline transport is the fallback of
// last resort.
func (o *Offline) Available(context.Context) bool {
	return true
}
