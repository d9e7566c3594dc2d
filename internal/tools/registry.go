package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

// Registry holds every registered tool's definition, compiled schema, and
// handler, dispatching tools/call by name.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*entry
	ordering []string // preserves registration order for tools/list
}

type entry struct {
	def     Definition
	schema  *jsonschema.Schema
	handler Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*entry)}
}

// Register compiles def's input schema and adds the tool. A compile
// failure is a programming error surfaced at startup, not at call time.
func (r *Registry) Register(def Definition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil for tool %s", def.Name)
	}

	schema, err := compileSchema(def.Name, def.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}
	r.tools[def.Name] = &entry{def: def, schema: schema, handler: handler}
	r.ordering = append(r.ordering, def.Name)
	return nil
}

// MustRegister registers a tool or panics, for init-time registration where
// a schema compile failure should fail the process fast.
func (r *Registry) MustRegister(def Definition, handler Handler) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// compileSchema compiles a raw JSON-Schema map into a *jsonschema.Schema. A
// nil or empty schema compiles to an always-pass schema ({}), matching
// jsonschema/v6's own treatment of an empty document.
func compileSchema(name string, raw map[string]any) (*jsonschema.Schema, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	c := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := c.AddResource(resource, raw); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile(resource)
}

// List returns every registered tool's descriptor in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.ordering))
	for _, name := range r.ordering {
		e := r.tools[name]
		descriptors = append(descriptors, Descriptor{Name: e.def.Name, Description: e.def.Description, InputSchema: e.def.InputSchema})
	}
	return descriptors
}

// Call validates req.Arguments against the tool's compiled schema, then
// dispatches to its handler. Schema violations surface as InvalidArgument
// carrying the offending field path, before the handler ever runs. A
// handler panic is recovered, logged with the tool name and tenantId on the
// request's context logger, and returned as StorageError.
func (r *Registry) Call(ctx context.Context, tc *Context, req CallRequest) (_ CallResult, err error) {
	r.mu.RLock()
	e, exists := r.tools[req.Name]
	r.mu.RUnlock()
	if !exists {
		return CallResult{}, methodNotFound(req.Name)
	}

	if err := validateArguments(e.schema, req.Arguments); err != nil {
		return CallResult{}, err
	}

	defer func() {
		if p := recover(); p != nil {
			ev := zerolog.Ctx(ctx).Error().Str("tool", req.Name).Interface("panic", p)
			if tc != nil {
				ev = ev.Str("tenantId", tc.RC.TenantID)
			}
			ev.Msg("tool handler panicked")
			err = huberr.New(huberr.StorageError, "tool "+req.Name+" failed unexpectedly", nil)
		}
	}()

	result, err := e.handler(ctx, tc, req.Arguments)
	if err != nil {
		return CallResult{}, err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return CallResult{}, huberr.New(huberr.StorageError, "failed to serialize tool result: "+err.Error(), nil)
	}
	return CallResult{Content: []ContentBlock{{Type: "text", Text: string(resultJSON)}}}, nil
}

// Get retrieves a tool's definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.tools[name]
	if !exists {
		return nil, false
	}
	return &e.def, true
}

// validateArguments unmarshals raw args and runs them through schema. An
// empty raw argument list validates as an empty object, the shape most
// tools with all-optional fields expect.
func validateArguments(schema *jsonschema.Schema, raw json.RawMessage) error {
	if len(raw) == 0 {
		raw = []byte(`{}`)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return huberr.Invalidf("arguments", "arguments must be valid JSON: "+err.Error())
	}
	if err := schema.Validate(doc); err != nil {
		return huberr.Invalidf(fieldPathOf(err), err.Error())
	}
	return nil
}

// fieldPathOf extracts the instance location from a jsonschema validation
// error, giving InvalidArgument's required field path something concrete to
// report even though jsonschema/v6 doesn't expose one directly on the
// exported error's fields.
func fieldPathOf(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		if loc := ve.InstanceLocation; len(loc) > 0 {
			path := ""
			for _, seg := range loc {
				path += "/" + seg
			}
			return path
		}
	}
	return "arguments"
}
