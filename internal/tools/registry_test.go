package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

func TestRegistry_Call_MCPContentFormat(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(Definition{
		Name:        "test.echo",
		Description: "Echo test tool",
		InputSchema: object(map[string]any{}),
	}, func(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
		return map[string]any{"message": "hello world", "count": 42}, nil
	})

	result, err := registry.Call(context.Background(), nil, CallRequest{Name: "test.echo", Arguments: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(result.Content))
	}
	if result.Content[0].Type != "text" {
		t.Errorf("expected content type 'text', got %q", result.Content[0].Type)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].Text), &decoded); err != nil {
		t.Fatalf("content text is not valid JSON: %v", err)
	}
	if decoded["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", decoded["message"])
	}
	if result.IsError {
		t.Error("expected IsError to be false")
	}
}

func TestRegistry_Call_ToolNotFound(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Call(context.Background(), nil, CallRequest{Name: "nonexistent.tool", Arguments: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected error for nonexistent tool")
	}
	he, ok := huberr.As(err)
	if !ok {
		t.Fatalf("expected *huberr.HubError, got %T", err)
	}
	if he.Kind != huberr.NotFound {
		t.Errorf("expected kind NotFound, got %s", he.Kind)
	}
}

func TestRegistry_Call_SchemaViolationNeverReachesHandler(t *testing.T) {
	registry := NewRegistry()
	called := false
	registry.MustRegister(Definition{
		Name:        "test.strict",
		Description: "requires a name",
		InputSchema: object(map[string]any{"name": stringSchema("required")}, "name"),
	}, func(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
		called = true
		return nil, nil
	})

	_, err := registry.Call(context.Background(), nil, CallRequest{Name: "test.strict", Arguments: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected a schema validation error")
	}
	if called {
		t.Error("handler must not run when schema validation fails")
	}
	he, ok := huberr.As(err)
	if !ok || he.Kind != huberr.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestRegistry_List_PreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	noop := func(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) { return nil, nil }

	registry.MustRegister(Definition{Name: "test.one", Description: "first", InputSchema: object(map[string]any{})}, noop)
	registry.MustRegister(Definition{Name: "test.two", Description: "second", InputSchema: object(map[string]any{})}, noop)

	descriptors := registry.List()
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(descriptors))
	}
	if descriptors[0].Name != "test.one" || descriptors[1].Name != "test.two" {
		t.Errorf("expected registration order to be preserved, got %v", descriptors)
	}
}

func TestRegistry_Register_DuplicateNameRejected(t *testing.T) {
	registry := NewRegistry()
	noop := func(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) { return nil, nil }

	if err := registry.Register(Definition{Name: "test.tool", InputSchema: object(map[string]any{})}, noop); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := registry.Register(Definition{Name: "test.tool", InputSchema: object(map[string]any{})}, noop); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestNewDefaultRegistry_RegistersAllEighteenTools(t *testing.T) {
	registry := NewDefaultRegistry()
	descriptors := registry.List()
	if len(descriptors) != 18 {
		t.Fatalf("expected 18 registered tools, got %d", len(descriptors))
	}
}
