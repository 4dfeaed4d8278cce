// Package rpc is the typed procedure layer shared by the page handlers,
// the HTTP RPC endpoint and the gRPC service.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgerrors "hydration-user-service/pkg/errors"
	"hydration-user-service/pkg/logger"
)

// Kind is the procedure type.
type Kind string

const (
	KindQuery Kind = "query"
)

type handlerFunc func(ctx context.Context, input json.RawMessage) (any, error)

type procedure struct {
	name    string
	kind    Kind
	handler handlerFunc
}

// Router holds the registered procedures.
type Router struct {
	mu    sync.RWMutex
	procs map[string]procedure
	log   *zap.Logger
}

// NewRouter creates an empty Router.
func NewRouter(log *zap.Logger) *Router {
	return &Router{procs: make(map[string]procedure), log: log}
}

func (r *Router) register(p procedure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.procs[p.name]; exists {
		panic(fmt.Sprintf("rpc: procedure %q registered twice", p.name))
	}
	r.procs[p.name] = p
}

// Query registers a parameterless query. Any input sent by a caller is ignored.
func Query[Out any](r *Router, name string, fn func(ctx context.Context) (Out, error)) {
	r.register(procedure{
		name: name,
		kind: KindQuery,
		handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return fn(ctx)
		},
	})
}

// QueryWithInput registers a query that decodes its input as JSON into In.
// The service's own procedures take no input; this is for embedders that
// register procedures on a Router, and both transports forward the input.
func QueryWithInput[In, Out any](r *Router, name string, fn func(ctx context.Context, in In) (Out, error)) {
	r.register(procedure{
		name: name,
		kind: KindQuery,
		handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in In
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &in); err != nil {
					return nil, pkgerrors.NewValidationError("input", "malformed input")
				}
			}
			return fn(ctx, in)
		},
	})
}

// Call invokes the procedure name in-process.
func (r *Router) Call(ctx context.Context, name string, input json.RawMessage) (any, error) {
	r.mu.RLock()
	p, ok := r.procs[name]
	r.mu.RUnlock()

	log := logger.WithContext(ctx, r.log)
	if !ok {
		log.Debug("unknown procedure", zap.String("procedure", name))
		return nil, pkgerrors.NewNotFoundError("procedure", fmt.Sprintf("no procedure named %q", name))
	}

	start := time.Now()
	out, err := p.handler(ctx, input)
	fields := []zap.Field{
		zap.String("procedure", name),
		zap.String("kind", string(p.kind)),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		log.Warn("procedure failed", append(fields, zap.String("code", pkgerrors.Code(err)), zap.Error(err))...)
		return nil, err
	}
	log.Debug("procedure completed", fields...)
	return out, nil
}

// Procedures lists the registered procedure names in order.
func (r *Router) Procedures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallAs invokes name and asserts its result type.
func CallAs[Out any](ctx context.Context, r *Router, name string) (Out, error) {
	var zero Out
	out, err := r.Call(ctx, name, nil)
	if err != nil {
		return zero, err
	}
	typed, ok := out.(Out)
	if !ok {
		return zero, pkgerrors.NewInternalError(fmt.Sprintf("procedure %q returned %T", name, out), nil)
	}
	return typed, nil
}
