// internal/sandbox/registry.go

// Package sandbox hosts short-lived, untrusted script executions in
// isolated engine instances. A registry owns the set of live contexts
// and hands out stable integer handles; all access to a context goes
// through its handle, so a destroyed context can never be touched
// through a dangling reference.
package sandbox

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vexflow/mediaspider/internal/monitoring"
	"github.com/vexflow/mediaspider/internal/transport"
)

// Sentinel errors for the script boundary. The string-only transport
// adapters render any of these (and script faults) as text prefixed
// with ErrorPrefix.
var (
	ErrContextNotFound  = errors.New("context not found")
	ErrContextInvalid   = errors.New("context is invalid")
	ErrFunctionNotFound = errors.New("function not found")
	ErrInvalidArguments = errors.New("invalid JSON arguments")
	ErrScript           = errors.New("script error")
)

// ErrorPrefix marks failures on the string-only boundary, which can
// transmit nothing richer than text.
const ErrorPrefix = "ERROR: "

// Registry owns the live contexts. Its mutex guards only the handle
// map during create/destroy; execution is serialized per context, so
// unrelated contexts run concurrently.
type Registry struct {
	mu       sync.Mutex
	contexts map[int64]*Context
	nextID   int64
	client   *transport.Client
}

// NewRegistry creates an empty registry whose contexts perform HTTP
// through the given client.
func NewRegistry(client *transport.Client) *Registry {
	return &Registry{
		contexts: make(map[int64]*Context),
		client:   client,
	}
}

// CreateContext allocates a sandbox with the default resource
// ceilings. On failure the returned handle is 0 and no context is
// retained.
func (r *Registry) CreateContext() (int64, error) {
	return r.CreateContextWithLimits(DefaultLimits())
}

// CreateContextWithLimits allocates a sandbox with explicit ceilings.
// Handles are monotonically increasing and never reused within the
// process lifetime.
func (r *Registry) CreateContextWithLimits(limits ResourceLimits) (int64, error) {
	// Engine construction happens outside the registry lock; only the
	// handle allocation and map insert are serialized.
	ctx, err := newContext(limits, r.client)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	ctx.id = id
	r.contexts[id] = ctx
	r.mu.Unlock()

	monitoring.ContextCreated()
	log.Debug().Int64("context", id).Msg("script context created")
	return id, nil
}

// DestroyContext removes a context and releases its engine. Destroying
// an unknown handle is a recoverable ErrContextNotFound, not a fault.
// An in-flight evaluation finishes first; destruction cannot interrupt
// it promptly.
func (r *Registry) DestroyContext(id int64) error {
	r.mu.Lock()
	ctx, ok := r.contexts[id]
	if ok {
		delete(r.contexts, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrContextNotFound
	}

	ctx.destroy()
	monitoring.ContextDestroyed()
	log.Debug().Int64("context", id).Msg("script context destroyed")
	return nil
}

// Close destroys every live context. The registry remains usable, but
// callers are expected to discard it.
func (r *Registry) Close() {
	r.mu.Lock()
	contexts := make([]*Context, 0, len(r.contexts))
	for id, ctx := range r.contexts {
		contexts = append(contexts, ctx)
		delete(r.contexts, id)
	}
	r.mu.Unlock()

	for _, ctx := range contexts {
		ctx.destroy()
		monitoring.ContextDestroyed()
	}
}

// Count returns the number of live contexts.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// lookup fetches a context under the registry lock only; execution
// then proceeds under the context's own lock.
func (r *Registry) lookup(id int64) (*Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[id]
	if !ok {
		return nil, ErrContextNotFound
	}
	return ctx, nil
}

// Evaluate runs source text in a context's global scope and returns
// the stringified completion value ("" for undefined).
func (r *Registry) Evaluate(id int64, src string) (string, error) {
	ctx, err := r.lookup(id)
	if err != nil {
		monitoring.ObserveEvaluation("evaluate", err)
		return "", err
	}
	result, err := ctx.evaluate(src)
	monitoring.ObserveEvaluation("evaluate", err)
	return result, err
}

// CallFunction invokes a named global function, passing a single
// argument parsed from jsonArgs.
func (r *Registry) CallFunction(id int64, name, jsonArgs string) (string, error) {
	ctx, err := r.lookup(id)
	if err != nil {
		monitoring.ObserveEvaluation("call", err)
		return "", err
	}
	result, err := ctx.callFunction(name, jsonArgs)
	monitoring.ObserveEvaluation("call", err)
	return result, err
}

// HasFunction reports whether a callable global exists in a context.
// Unknown or invalid contexts report false.
func (r *Registry) HasFunction(id int64, name string) bool {
	ctx, err := r.lookup(id)
	if err != nil {
		return false
	}
	return ctx.hasFunction(name)
}

// ContextValid reports whether a handle refers to a live, usable
// context.
func (r *Registry) ContextValid(id int64) bool {
	ctx, err := r.lookup(id)
	if err != nil {
		return false
	}
	return ctx.Valid()
}

// EvaluateString is the string-only boundary form of Evaluate: it
// always returns a string and renders any failure as ErrorPrefix plus
// the message.
func (r *Registry) EvaluateString(id int64, src string) string {
	result, err := r.Evaluate(id, src)
	if err != nil {
		return ErrorPrefix + boundaryMessage(err)
	}
	return result
}

// CallFunctionString is the string-only boundary form of CallFunction.
func (r *Registry) CallFunctionString(id int64, name, jsonArgs string) string {
	result, err := r.CallFunction(id, name, jsonArgs)
	if err != nil {
		return ErrorPrefix + boundaryMessage(err)
	}
	return result
}

// boundaryMessage strips the internal "script error: " wrapper so the
// text a script consumer sees matches the script's own exception.
func boundaryMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, ErrScript) {
		const wrapper = "script error: "
		if len(msg) > len(wrapper) && msg[:len(wrapper)] == wrapper {
			return msg[len(wrapper):]
		}
	}
	return msg
}
