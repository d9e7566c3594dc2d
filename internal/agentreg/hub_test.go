package agentreg

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConnection_EnqueueDropsOldestWhenFull(t *testing.T) {
	c := &Connection{send: make(chan []byte, 2), tenantID: "tenant-a", agentID: "agent-1"}

	c.enqueue([]byte("first"))
	c.enqueue([]byte("second"))
	c.enqueue([]byte("third")) // queue full: "first" should be dropped, not "third"

	if got := c.MissedNotifications(); got != 1 {
		t.Fatalf("MissedNotifications() = %d, want 1", got)
	}

	var got []string
	close(c.send)
	for msg := range c.send {
		got = append(got, string(msg))
	}
	if len(got) != 2 || got[0] != "second" || got[1] != "third" {
		t.Fatalf("queue contents = %v, want [second third]", got)
	}
}

func TestHub_PushOnlyMatchesTenantAndAgent(t *testing.T) {
	h := &Hub{clients: make(map[*Connection]bool)}

	target := &Connection{send: make(chan []byte, 1), tenantID: "tenant-a", agentID: "agent-1"}
	otherAgent := &Connection{send: make(chan []byte, 1), tenantID: "tenant-a", agentID: "agent-2"}
	otherTenant := &Connection{send: make(chan []byte, 1), tenantID: "tenant-b", agentID: "agent-1"}
	h.clients[target] = true
	h.clients[otherAgent] = true
	h.clients[otherTenant] = true

	h.Push("tenant-a", "agent-1", []byte("hello"))

	if len(target.send) != 1 {
		t.Error("expected target connection to receive the push")
	}
	if len(otherAgent.send) != 0 {
		t.Error("expected a different agent in the same tenant not to receive the push")
	}
	if len(otherTenant.send) != 0 {
		t.Error("expected a different tenant with the same agent id not to receive the push")
	}
}

func TestHub_BroadcastTenantFiltersByAgentSet(t *testing.T) {
	h := &Hub{clients: make(map[*Connection]bool)}

	a := &Connection{send: make(chan []byte, 1), tenantID: "tenant-a", agentID: "agent-1"}
	b := &Connection{send: make(chan []byte, 1), tenantID: "tenant-a", agentID: "agent-2"}
	excluded := &Connection{send: make(chan []byte, 1), tenantID: "tenant-a", agentID: "agent-3"}
	h.clients[a] = true
	h.clients[b] = true
	h.clients[excluded] = true

	h.BroadcastTenant("tenant-a", []string{"agent-1", "agent-2"}, []byte("hi"))

	if len(a.send) != 1 || len(b.send) != 1 {
		t.Error("expected both targeted agents to receive the broadcast")
	}
	if len(excluded.send) != 0 {
		t.Error("expected the agent not in the recipient set to be skipped")
	}
}

func TestHub_CloseStopsRunLoop(t *testing.T) {
	h := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}
