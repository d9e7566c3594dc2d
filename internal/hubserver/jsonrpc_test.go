package hubserver

import (
	"encoding/json"
	"testing"
)

func TestJSONRPCRequest_IsNotification(t *testing.T) {
	tests := []struct {
		name string
		req  JSONRPCRequest
		want bool
	}{
		{name: "request with id is not notification", req: JSONRPCRequest{ID: json.RawMessage(`1`)}, want: false},
		{name: "request without id is notification", req: JSONRPCRequest{}, want: true},
		{name: "request with null id is not notification", req: JSONRPCRequest{ID: json.RawMessage(`null`)}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.IsNotification(); got != tt.want {
				t.Errorf("IsNotification() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSONRPCErrorCodes_AreNegative(t *testing.T) {
	for name, code := range map[string]int{
		"ParseError":     ParseError,
		"InvalidRequest": InvalidRequest,
		"MethodNotFound": MethodNotFound,
		"InvalidParams":  InvalidParams,
		"InternalError":  InternalError,
	} {
		if code >= 0 {
			t.Errorf("%s = %d, want negative", name, code)
		}
	}
}

func TestJSONRPCResponse_ErrorMarshaling(t *testing.T) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Error:   &JSONRPCError{Code: InvalidRequest, Message: "invalid request"},
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("round-trip unmarshal failed: %v", err)
	}
	if _, hasResult := decoded["result"]; hasResult {
		t.Error("error response must omit result")
	}
	errObj, ok := decoded["error"].(map[string]any)
	if !ok {
		t.Fatal("expected an error object")
	}
	if int(errObj["code"].(float64)) != InvalidRequest {
		t.Errorf("error code = %v, want %d", errObj["code"], InvalidRequest)
	}
}
