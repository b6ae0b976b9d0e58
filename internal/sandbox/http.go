// internal/sandbox/http.go
package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/vexflow/mediaspider/internal/transport"
	"github.com/vexflow/mediaspider/pkg/types"
)

// Default headers attached to every request issued from script code.
// The Content-Type default applies only when a body is supplied.
const (
	defaultAccept         = "application/json, text/plain, */*"
	defaultAcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
	defaultContentType    = "application/json; charset=UTF-8"
)

// installHTTP exposes the request verbs to script code. Every variant
// runs synchronously on the calling script's logical thread; the
// *Async names are kept for script compatibility and behave exactly
// like their synchronous counterparts.
func (c *Context) installHTTP() error {
	bindings := map[string]func(goja.FunctionCall) goja.Value{
		"httpGet":       c.httpSimple("httpGet", "GET", false),
		"httpPost":      c.httpSimple("httpPost", "POST", true),
		"httpPut":       c.httpSimple("httpPut", "PUT", true),
		"httpDelete":    c.httpSimple("httpDelete", "DELETE", false),
		"httpHead":      c.httpSimple("httpHead", "HEAD", false),
		"httpRequest":   c.httpRequest,
		"httpGetAsync":  c.httpSimple("httpGetAsync", "GET", false),
		"httpPostAsync": c.httpSimple("httpPostAsync", "POST", true),
	}
	for name, fn := range bindings {
		if err := c.vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// httpSimple builds a verb binding. Body verbs take (url, body,
// headers?); the rest take (url, headers?). Argument faults raise a
// script TypeError before any network activity; transport faults come
// back as status -1 response values.
func (c *Context) httpSimple(name, method string, hasBody bool) func(goja.FunctionCall) goja.Value {
	minArgs := 1
	if hasBody {
		minArgs = 2
	}
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < minArgs {
			panic(c.vm.NewTypeError("%s requires at least %d argument(s)", name, minArgs))
		}

		url, ok := call.Argument(0).Export().(string)
		if !ok {
			panic(c.vm.NewTypeError("URL must be a string"))
		}

		req := transport.Request{
			URL:     url,
			Method:  method,
			Headers: c.defaultHeaders(hasBody),
		}

		headerArg := 1
		if hasBody {
			body, ok := call.Argument(1).Export().(string)
			if !ok {
				panic(c.vm.NewTypeError("body must be a string"))
			}
			req.Body = body
			headerArg = 2
		}

		if len(call.Arguments) > headerArg {
			mergeHeaders(req.Headers, c.exportHeaders(call.Argument(headerArg)))
		}

		record := c.client.Do(context.Background(), req)
		return c.responseValue(record)
	}
}

// httpRequest is the generic verb: a single options object with url,
// and optional method, data, headers and timeout fields.
func (c *Context) httpRequest(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 {
		panic(c.vm.NewTypeError("httpRequest requires an options object"))
	}
	options, ok := call.Argument(0).(*goja.Object)
	if !ok {
		panic(c.vm.NewTypeError("httpRequest requires an options object"))
	}

	urlValue := options.Get("url")
	if urlValue == nil || goja.IsUndefined(urlValue) || goja.IsNull(urlValue) {
		panic(c.vm.NewTypeError("URL is required"))
	}
	url, ok := urlValue.Export().(string)
	if !ok {
		panic(c.vm.NewTypeError("URL must be a string"))
	}

	req := transport.Request{URL: url, Method: "GET"}

	if v := options.Get("method"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		method, ok := v.Export().(string)
		if !ok {
			panic(c.vm.NewTypeError("method must be a string"))
		}
		req.Method = strings.ToUpper(method)
	}

	if v := options.Get("data"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		data, ok := v.Export().(string)
		if !ok {
			panic(c.vm.NewTypeError("data must be a string"))
		}
		req.Body = data
	}

	if v := options.Get("timeout"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		if timeout := v.ToInteger(); timeout > 0 {
			req.TimeoutMs = timeout
		}
	}

	req.Headers = c.defaultHeaders(req.Body != "")
	if v := options.Get("headers"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		mergeHeaders(req.Headers, c.exportHeaders(v))
	}

	record := c.client.Do(context.Background(), req)
	return c.responseValue(record)
}

func (c *Context) defaultHeaders(hasBody bool) map[string]string {
	headers := map[string]string{
		"Accept":          defaultAccept,
		"Accept-Language": defaultAcceptLanguage,
	}
	if hasBody {
		headers["Content-Type"] = defaultContentType
	}
	return headers
}

// exportHeaders converts a script headers object into a string map.
// Anything that is not an object raises a script TypeError.
func (c *Context) exportHeaders(value goja.Value) map[string]string {
	obj, ok := value.(*goja.Object)
	if !ok {
		panic(c.vm.NewTypeError("headers must be an object"))
	}
	headers := make(map[string]string)
	for _, key := range obj.Keys() {
		v := obj.Get(key)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		if s, ok := v.Export().(string); ok {
			headers[key] = s
		} else {
			headers[key] = fmt.Sprintf("%v", v.Export())
		}
	}
	return headers
}

func mergeHeaders(dst, src map[string]string) {
	for key, value := range src {
		dst[key] = value
	}
}

// responseValue builds the script-visible response object:
// {status, data, contentType, headers}.
func (c *Context) responseValue(record types.HTTPResponseRecord) goja.Value {
	obj := c.vm.NewObject()
	_ = obj.Set("status", record.Status)
	_ = obj.Set("data", record.Data)
	_ = obj.Set("contentType", record.ContentType)

	headers := c.vm.NewObject()
	for key, value := range record.Headers {
		_ = headers.Set(key, value)
	}
	_ = obj.Set("headers", headers)
	return obj
}
