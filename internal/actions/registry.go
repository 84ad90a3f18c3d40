package actions

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// Handler executes one named action.
type Handler func(ctx context.Context, req Request, publish PublishFunc) error

// Registry maps upper-case action names to handlers and is itself a Stage.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs h under name, replacing any previous handler. NONE and
// blank names are ignored.
func (r *Registry) Register(name string, h Handler) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || name == domain.ActionNone || h == nil {
		return
	}
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Run dispatches on req.Response.Action. NONE and unknown actions do nothing.
func (r *Registry) Run(ctx context.Context, req Request, publish PublishFunc) error {
	name := strings.ToUpper(strings.TrimSpace(req.Response.Action))
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		if name != "" && name != domain.ActionNone {
			zerolog.Ctx(ctx).Debug().Str("action", name).Msg("unknown action ignored")
		}
		return nil
	}
	return h(ctx, req, publish)
}

// Ignore is a handler that answers nothing.
func Ignore(context.Context, Request, PublishFunc) error { return ErrSuppressed }

// ReplyNow publishes the candidate text from the action path.
func ReplyNow(ctx context.Context, req Request, publish PublishFunc) error {
	_, err := publish(ctx, req.Response.Text)
	return err
}
