package consumer

import "context"

// Router dispatches messages by event type. Messages without a route go to the
// fallback handler when one is set and are acknowledged otherwise.
type Router struct {
	routes   map[string]Handler
	fallback Handler
}

// NewRouter constructs an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// Route registers h for eventType.
func (r *Router) Route(eventType string, h Handler) *Router {
	r.routes[eventType] = h
	return r
}

// Fallback sets the handler for unrouted event types.
func (r *Router) Fallback(h Handler) *Router {
	r.fallback = h
	return r
}

// Handle implements Handler.
func (r *Router) Handle(ctx context.Context, msg Message) error {
	if h, ok := r.routes[msg.EventType]; ok {
		return h.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	recordUnrouted(msg)
	return nil
}
