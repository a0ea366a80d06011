// Package tracing records lightweight in-process span trees carried through
// contexts and writes them to slog when the root span finishes.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/logger"
)

type contextKey struct{}

type Span struct {
	Name    string
	TraceID string
	Start   time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	children []*Span
	attrs    []any
}

// StartSpan opens a root span. The trace id is the request id in ctx, when
// one is present.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{
		Name:    name,
		TraceID: logger.RequestID(ctx),
		Start:   time.Now(),
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild opens a span under the one in ctx. Without a parent it behaves
// like StartSpan.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	if parent == nil {
		return StartSpan(ctx, name)
	}
	child := &Span{Name: name, TraceID: parent.TraceID, Start: time.Now()}
	parent.mu.Lock()
	parent.children = append(parent.children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, contextKey{}, child), child
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span duration. Calls after the first are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.duration = time.Since(s.Start)
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

// Log writes the span and its descendants at debug level, depth-first.
func (s *Span) Log(log *slog.Logger) {
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.log(log, 0)
}

func (s *Span) log(log *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_us", s.duration.Microseconds(),
		"depth", depth,
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	log.Debug("span", attrs...)
	for _, child := range children {
		child.log(log, depth+1)
	}
}
