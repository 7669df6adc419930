package api

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livraria/livraria-api/internal/store"
)

// Envelope is the body of every successful response.
type Envelope[T any] struct {
	Success bool   `json:"success" doc:"Always true for successful responses"`
	Message string `json:"message,omitempty" doc:"Human-readable message"`
	Data    T      `json:"data" doc:"Response payload"`
	Meta    Meta   `json:"meta" doc:"Timing and pagination metadata"`
}

// MessageEnvelope is the body of responses that only carry a message.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Meta    Meta   `json:"meta"`
}

// Meta is attached to every response, including errors.
type Meta struct {
	ResponseTime string    `json:"responseTime" doc:"Server processing time, e.g. 3.25ms"`
	Timestamp    time.Time `json:"timestamp" doc:"Time the response was produced"`
	*PageMeta
	*SearchMeta
	*TokenMeta
}

// PageMeta describes one page of a paginated list.
type PageMeta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// SearchMeta echoes the search term and the number of hits.
type SearchMeta struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TokenMeta describes an issued access token.
type TokenMeta struct {
	TokenType string    `json:"tokenType" doc:"Always Bearer"`
	ExpiresIn int64     `json:"expiresIn" doc:"Token lifetime in seconds"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type startKey struct{}

// withStart stores the time the request entered the pipeline.
func withStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, startKey{}, start)
}

func requestStart(ctx context.Context) (time.Time, bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	start, ok := ctx.Value(startKey{}).(time.Time)
	return start, ok
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

// newMeta stamps the timing fields from the request start stored in ctx.
func newMeta(ctx context.Context) Meta {
	now := time.Now()
	m := Meta{Timestamp: now.UTC(), ResponseTime: formatElapsed(0)}
	if start, ok := requestStart(ctx); ok {
		m.ResponseTime = formatElapsed(now.Sub(start))
	}
	return m
}

// reply wraps data in a success envelope with timing metadata. Every
// handler builds its body through reply.
func reply[T any](ctx context.Context, data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data, Meta: newMeta(ctx)}
}

// replyMessage builds a success envelope without data.
func replyMessage(ctx context.Context, message string) MessageEnvelope {
	return MessageEnvelope{Success: true, Message: message, Meta: newMeta(ctx)}
}

// replyPage wraps one page of a list with pagination metadata.
func replyPage[T, V any](ctx context.Context, page store.Page[T], view func(T) V) Envelope[[]V] {
	items := make([]V, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, view(item))
	}
	env := reply(ctx, items)
	env.Meta.PageMeta = &PageMeta{
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(),
		HasNext:    page.HasNext(),
		HasPrev:    page.HasPrev(),
	}
	return env
}

func identity[T any](v T) T { return v }

// EnvelopeTransformer stamps timing metadata onto error bodies produced by
// huma itself (validation, parse and status errors). Success bodies are
// already complete.
func EnvelopeTransformer(ctx huma.Context, _ string, v any) (any, error) {
	apiErr, ok := v.(*APIError)
	if !ok || apiErr.Meta != nil {
		return v, nil
	}
	var reqCtx context.Context
	if ctx != nil {
		reqCtx = ctx.Context()
	}
	meta := newMeta(reqCtx)
	apiErr.Meta = &meta
	return apiErr, nil
}
