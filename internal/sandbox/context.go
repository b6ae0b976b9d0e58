// internal/sandbox/context.go
package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/vexflow/mediaspider/internal/selector"
	"github.com/vexflow/mediaspider/internal/transport"
)

// Resource ceilings for one sandbox. Fixed defaults; an explicit
// limits value at creation is the only configuration surface.
const (
	DefaultMemoryBytes = 32 << 20  // 32 MiB
	DefaultStackBytes  = 512 << 10 // 512 KiB

	// The engine bounds recursion by frame count rather than bytes;
	// the stack byte budget is translated assuming this frame size.
	approxStackFrameBytes = 256
)

// ResourceLimits holds the ceilings applied when a context is created.
// They are not adjustable afterward.
type ResourceLimits struct {
	MemoryBytes int64
	StackBytes  int64
}

// DefaultLimits returns the compatibility ceilings.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{MemoryBytes: DefaultMemoryBytes, StackBytes: DefaultStackBytes}
}

// Context is one isolated script sandbox: its own engine instance,
// globals and resource ceilings. All execution against a context is
// serialized by its mutex, including HTTP calls issued from script
// code, so a caller blocked on the network holds the context for the
// full round trip.
type Context struct {
	id     int64
	vm     *goja.Runtime
	limits ResourceLimits
	client *transport.Client

	mu    sync.Mutex
	valid bool
}

// newContext builds a sandbox and installs the global capability
// surface. The context is only usable if every binding installs
// cleanly.
func newContext(limits ResourceLimits, client *transport.Client) (*Context, error) {
	if limits.MemoryBytes <= 0 {
		limits.MemoryBytes = DefaultMemoryBytes
	}
	if limits.StackBytes <= 0 {
		limits.StackBytes = DefaultStackBytes
	}

	c := &Context{
		vm:     goja.New(),
		limits: limits,
		client: client,
	}
	c.vm.SetMaxCallStackSize(int(limits.StackBytes / approxStackFrameBytes))

	if err := c.installConsole(); err != nil {
		return nil, fmt.Errorf("installing console bindings: %w", err)
	}
	if err := c.installHTTP(); err != nil {
		return nil, fmt.Errorf("installing http bindings: %w", err)
	}
	if err := c.installSelector(); err != nil {
		return nil, fmt.Errorf("installing selector bindings: %w", err)
	}

	c.valid = true
	return c, nil
}

// ID returns the context's registry handle.
func (c *Context) ID() int64 { return c.id }

// Limits returns the ceilings fixed at creation.
func (c *Context) Limits() ResourceLimits { return c.limits }

// Valid reports whether the context can still execute.
func (c *Context) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// destroy invalidates the context and releases the engine. It waits
// for any in-flight evaluation to finish; there is no way to interrupt
// one promptly.
func (c *Context) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.vm = nil
}

// evaluate runs source text in the global scope and returns the
// stringified completion value ("" for undefined).
func (c *Context) evaluate(src string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return "", ErrContextInvalid
	}

	value, err := c.vm.RunString(src)
	if err != nil {
		return "", scriptError(err)
	}
	if value == nil || goja.IsUndefined(value) {
		return "", nil
	}
	return value.String(), nil
}

// callFunction invokes a named global function with a single argument
// parsed from a JSON document.
func (c *Context) callFunction(name, jsonArgs string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return "", ErrContextInvalid
	}

	fnValue := c.vm.GlobalObject().Get(name)
	if fnValue == nil || goja.IsUndefined(fnValue) {
		return "", fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not callable", ErrFunctionNotFound, name)
	}

	if !gjson.Valid(jsonArgs) {
		return "", ErrInvalidArguments
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(jsonArgs), &parsed); err != nil {
		return "", ErrInvalidArguments
	}

	value, err := fn(goja.Undefined(), c.vm.ToValue(parsed))
	if err != nil {
		return "", scriptError(err)
	}
	return value.String(), nil
}

// hasFunction reports whether a callable global with this name exists.
func (c *Context) hasFunction(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return false
	}
	value := c.vm.GlobalObject().Get(name)
	if value == nil || goja.IsUndefined(value) {
		return false
	}
	_, callable := goja.AssertFunction(value)
	return callable
}

func (c *Context) installConsole() error {
	console := c.vm.NewObject()
	bind := func(name string, emit func(msg string)) error {
		return console.Set(name, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, arg.String())
			}
			emit(strings.Join(parts, " "))
			return goja.Undefined()
		})
	}

	if err := bind("log", func(msg string) { log.Info().Int64("context", c.id).Msg(msg) }); err != nil {
		return err
	}
	if err := bind("info", func(msg string) { log.Info().Int64("context", c.id).Msg(msg) }); err != nil {
		return err
	}
	if err := bind("warn", func(msg string) { log.Warn().Int64("context", c.id).Msg(msg) }); err != nil {
		return err
	}
	if err := bind("error", func(msg string) { log.Error().Int64("context", c.id).Msg(msg) }); err != nil {
		return err
	}
	return c.vm.Set("console", console)
}

func (c *Context) installSelector() error {
	parseHTML := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(c.vm.NewTypeError("parseHtml requires html and selector arguments"))
		}
		html, ok := call.Argument(0).Export().(string)
		if !ok {
			panic(c.vm.NewTypeError("html must be a string"))
		}
		css, ok := call.Argument(1).Export().(string)
		if !ok {
			panic(c.vm.NewTypeError("selector must be a string"))
		}
		var nodes []selector.Node
		if strings.HasPrefix(css, "//") {
			nodes = selector.SelectXPath(html, css)
		} else {
			nodes = selector.Select(html, css)
		}
		return c.vm.ToValue(selector.MarshalNodes(nodes))
	}
	if err := c.vm.Set("parseHtml", parseHTML); err != nil {
		return err
	}

	stripTags := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(c.vm.NewTypeError("stripTags requires an html argument"))
		}
		html, ok := call.Argument(0).Export().(string)
		if !ok {
			panic(c.vm.NewTypeError("html must be a string"))
		}
		return c.vm.ToValue(selector.StripTags(html))
	}
	return c.vm.Set("stripTags", stripTags)
}

// scriptError normalizes engine errors so boundary adapters can render
// them uniformly.
func scriptError(err error) error {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return fmt.Errorf("%w: %s", ErrScript, exception.Value().String())
	}
	return fmt.Errorf("%w: %s", ErrScript, err.Error())
}
