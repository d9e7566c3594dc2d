package tools

// NewDefaultRegistry builds the Registry carrying every tool named in the
// tool-name list: knowledge graph, messaging, agents, individual memory,
// sessions, and utilities.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(Definition{
		Name:        "create_entities",
		Description: "Create or update knowledge-graph entities by name; duplicate (type, name) pairs resolve to the existing entity.",
		InputSchema: object(map[string]any{
			"entities": map[string]any{
				"type": "array",
				"items": object(map[string]any{
					"name": stringSchema("entity name, unique per type within the tenant"),
					"type": stringSchema("entity type tag"),
				}, "name", "type"),
			},
		}, "entities"),
	}, handleCreateEntities)

	r.MustRegister(Definition{
		Name:        "add_observations",
		Description: "Append one or more observation notes to an existing entity.",
		InputSchema: object(map[string]any{
			"entityName":   stringSchema("name of the entity to annotate"),
			"observations": stringArraySchema("observation text, one per array element"),
		}, "entityName", "observations"),
	}, handleAddObservations)

	r.MustRegister(Definition{
		Name:        "create_relations",
		Description: "Create directed typed relations between existing entities.",
		InputSchema: object(map[string]any{
			"relations": map[string]any{
				"type": "array",
				"items": object(map[string]any{
					"from": stringSchema("source entity name"),
					"to":   stringSchema("target entity name"),
					"type": stringSchema("relation type tag"),
				}, "from", "to", "type"),
			},
		}, "relations"),
	}, handleCreateRelations)

	r.MustRegister(Definition{
		Name:        "read_graph",
		Description: "Return the calling tenant's full knowledge graph: every entity and relation.",
		InputSchema: object(map[string]any{}),
	}, handleReadGraph)

	r.MustRegister(Definition{
		Name:        "search_entities",
		Description: "Search entities by exact substring, semantic similarity, graph traversal, or a hybrid of exact and semantic.",
		InputSchema: object(map[string]any{
			"query": stringSchema("search text"),
			"mode":  enumSchema("search strategy", []string{"exact", "semantic", "graph", "hybrid"}),
			"limit": integerSchema("maximum results to return", intPtr(1)),
		}, "query"),
	}, handleSearchEntities)

	r.MustRegister(Definition{
		Name:        "search_nodes",
		Description: "Deprecated alias of search_entities(mode: graph); preserved for older clients.",
		InputSchema: object(map[string]any{
			"query": stringSchema("search text"),
			"limit": integerSchema("maximum results to return", intPtr(1)),
		}, "query"),
	}, handleSearchNodes)

	r.MustRegister(Definition{
		Name:        "send_ai_message",
		Description: "Send a message to a direct recipient, a capability-matched set, or broadcast to every agent in the tenant.",
		InputSchema: object(map[string]any{
			"from":           stringSchema("sending agent id; defaults to the caller's resolved agent identity"),
			"to":             stringSchema("direct recipient agent id, or \"*\" to broadcast"),
			"toCapabilities": stringArraySchema("recipients must declare every listed capability (AND semantics)"),
			"broadcast":      booleanSchema("send to every agent in the tenant"),
			"excludeSelf":    booleanSchema("when broadcasting, exclude the sender (default true)"),
			"content":        stringSchema("message body"),
			"type":           stringSchema("message type tag, default \"text\""),
			"priority":       stringSchema("message priority tag, default \"normal\""),
		}, "content"),
	}, handleSendAIMessage)

	r.MustRegister(Definition{
		Name:        "get_ai_messages",
		Description: "List an agent's inbox, optionally filtering to unread and stamping readAt on the returned rows.",
		InputSchema: object(map[string]any{
			"agentId":    stringSchema("inbox owner's agent id"),
			"unreadOnly": booleanSchema("only return unread messages"),
			"sinceId":    stringSchema("only return messages with id greater than this value"),
			"limit":      integerSchema("maximum messages to return, default 100", intPtr(1)),
			"markAsRead": booleanSchema("stamp readAt on the returned rows; honored only when the caller is the inbox owner"),
		}, "agentId"),
	}, handleGetAIMessages)

	r.MustRegister(Definition{
		Name:        "register_agent",
		Description: "Register or update an agent's declared identity and capabilities.",
		InputSchema: object(map[string]any{
			"agentId":      stringSchema("client-chosen or bridge-generated agent id"),
			"name":         stringSchema("display name"),
			"capabilities": stringArraySchema("free-form capability tags used by the Router"),
			"metadata":     objectSchema("arbitrary client metadata"),
		}, "agentId", "name"),
	}, handleRegisterAgent)

	r.MustRegister(Definition{
		Name:        "set_agent_identity",
		Description: "Update an already-registered agent's display name and metadata without touching its capabilities or status.",
		InputSchema: object(map[string]any{
			"agentId":  stringSchema("agent id to update"),
			"name":     stringSchema("new display name"),
			"metadata": objectSchema("arbitrary client metadata"),
		}, "agentId", "name"),
	}, handleSetAgentIdentity)

	r.MustRegister(Definition{
		Name:        "get_agent_status",
		Description: "Fetch one agent's status and lastSeen, or every agent in the tenant when agentId is omitted.",
		InputSchema: object(map[string]any{
			"agentId": stringSchema("agent id; omit to list every agent in the tenant"),
		}),
	}, handleGetAgentStatus)

	r.MustRegister(Definition{
		Name:        "record_learning",
		Description: "Record a durable, agent-private lesson used to seed later context bundles.",
		InputSchema: object(map[string]any{
			"agentId":    stringSchema("agent the learning belongs to; defaults to the caller's agent identity"),
			"context":    stringSchema("situation the lesson applies to"),
			"lesson":     stringSchema("the lesson text"),
			"confidence": numberSchema("confidence in [0,1]", floatPtr(0), floatPtr(1)),
		}, "lesson", "confidence"),
	}, handleRecordLearning)

	r.MustRegister(Definition{
		Name:        "set_preferences",
		Description: "Write last-writer-wins key/value preference pairs for an agent.",
		InputSchema: object(map[string]any{
			"agentId":     stringSchema("agent the preferences belong to; defaults to the caller's agent identity"),
			"preferences": objectSchema("key/value preference pairs"),
		}, "preferences"),
	}, handleSetPreferences)

	r.MustRegister(Definition{
		Name:        "get_individual_memory",
		Description: "Return an agent's private memory: recent learnings ranked by recency and confidence, plus preferences.",
		InputSchema: object(map[string]any{
			"agentId": stringSchema("agent id; defaults to the caller's agent identity"),
		}),
	}, handleGetIndividualMemory)

	r.MustRegister(Definition{
		Name:        "get_agent_context",
		Description: "Assemble a tiered context bundle (hot/warm/cold) for a resuming agent without opening a session.",
		InputSchema: object(map[string]any{
			"agentId":   stringSchema("agent id; defaults to the caller's agent identity"),
			"projectId": stringSchema("project the bundle is scoped to"),
			"depth":     enumSchema("how many tiers to materialize, default hot", []string{"hot", "warm", "cold"}),
		}, "projectId"),
	}, handleGetAgentContext)

	r.MustRegister(Definition{
		Name:        "begin_session",
		Description: "Open (or reuse) a session for an agent and project, consume the project's latest unconsumed handoff, and return a context bundle.",
		InputSchema: object(map[string]any{
			"agentId":   stringSchema("agent id; defaults to the caller's agent identity"),
			"projectId": stringSchema("project to begin a session for"),
			"depth":     enumSchema("context bundle depth, default hot", []string{"hot", "warm", "cold"}),
		}, "projectId"),
	}, handleBeginSession)

	r.MustRegister(Definition{
		Name:        "end_session",
		Description: "Close the open session for an agent and project and write a handoff note for the next begin_session.",
		InputSchema: object(map[string]any{
			"agentId":   stringSchema("agent id; defaults to the caller's agent identity"),
			"projectId": stringSchema("project the session belongs to"),
			"summary":   stringSchema("handoff summary for the next session"),
			"openItems": stringArraySchema("open items left for the next session"),
		}, "projectId", "summary"),
	}, handleEndSession)

	r.MustRegister(Definition{
		Name:        "translate_path",
		Description: "Normalize an agent-local file path into the hub's canonical project-relative form.",
		InputSchema: object(map[string]any{
			"projectId":    stringSchema("project the path belongs to"),
			"workspaceDir": stringSchema("agent's local workspace root, stripped from the path if present"),
			"path":         stringSchema("path to normalize"),
		}, "path"),
	}, handleTranslatePath)

	return r
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}
