package memstore

import "context"

// schemaDDL creates every table named in the data model, each with
// tenant_id as the leading column of its primary lookup index, per the
// persisted-state-layout contract.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS entity (
	tenant_id   text NOT NULL,
	id          uuid NOT NULL,
	name        text NOT NULL,
	type        text NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id),
	UNIQUE (tenant_id, type, name)
);

CREATE TABLE IF NOT EXISTS observation (
	tenant_id   text NOT NULL,
	id          uuid NOT NULL,
	entity_id   uuid NOT NULL,
	content     text NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS observation_entity_idx ON observation (tenant_id, entity_id, created_at);

CREATE TABLE IF NOT EXISTS relation (
	tenant_id       text NOT NULL,
	id              uuid NOT NULL,
	from_entity_id  uuid NOT NULL,
	to_entity_id    uuid NOT NULL,
	relation_type   text NOT NULL,
	created_at      timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id),
	UNIQUE (tenant_id, from_entity_id, to_entity_id, relation_type)
);
CREATE INDEX IF NOT EXISTS relation_from_idx ON relation (tenant_id, from_entity_id);

CREATE TABLE IF NOT EXISTS agent (
	tenant_id     text NOT NULL,
	id            text NOT NULL,
	name          text NOT NULL,
	capabilities  text[] NOT NULL DEFAULT '{}',
	status        text NOT NULL DEFAULT 'offline',
	last_seen     timestamptz NOT NULL DEFAULT now(),
	metadata      jsonb NOT NULL DEFAULT '{}',
	PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS message (
	tenant_id   text NOT NULL,
	id          uuid NOT NULL,
	from_agent  text NOT NULL,
	to_agent    text NOT NULL,
	content     text NOT NULL,
	type        text NOT NULL DEFAULT 'text',
	priority    text NOT NULL DEFAULT 'normal',
	created_at  timestamptz NOT NULL DEFAULT now(),
	read_at     timestamptz,
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS message_inbox_idx ON message (tenant_id, to_agent, created_at, id);

CREATE TABLE IF NOT EXISTS learning (
	tenant_id   text NOT NULL,
	id          uuid NOT NULL,
	agent_id    text NOT NULL,
	context     text NOT NULL,
	lesson      text NOT NULL,
	confidence  double precision NOT NULL DEFAULT 0.5,
	created_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS learning_agent_idx ON learning (tenant_id, agent_id, created_at);

CREATE TABLE IF NOT EXISTS preference (
	tenant_id   text NOT NULL,
	agent_id    text NOT NULL,
	key         text NOT NULL,
	value       jsonb NOT NULL,
	updated_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, agent_id, key)
);

CREATE TABLE IF NOT EXISTS session (
	tenant_id   text NOT NULL,
	project_id  text NOT NULL,
	agent_id    text NOT NULL,
	opened_at   timestamptz NOT NULL DEFAULT now(),
	closed_at   timestamptz,
	PRIMARY KEY (tenant_id, project_id, agent_id, opened_at)
);
CREATE UNIQUE INDEX IF NOT EXISTS session_open_singleton_idx
	ON session (tenant_id, project_id, agent_id) WHERE closed_at IS NULL;

CREATE TABLE IF NOT EXISTS handoff (
	tenant_id            text NOT NULL,
	id                   uuid NOT NULL,
	project_id           text NOT NULL,
	authoring_agent_id   text NOT NULL,
	summary              text NOT NULL,
	open_items           jsonb NOT NULL DEFAULT '[]',
	created_at           timestamptz NOT NULL DEFAULT now(),
	consumed_at          timestamptz,
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS handoff_unconsumed_idx
	ON handoff (tenant_id, project_id, created_at) WHERE consumed_at IS NULL;

CREATE TABLE IF NOT EXISTS api_key (
	id          text PRIMARY KEY,
	tenant_id   text NOT NULL,
	scopes      text[] NOT NULL DEFAULT '{}',
	revoked_at  timestamptz
);

CREATE TABLE IF NOT EXISTS tenant_membership (
	tenant_id   text NOT NULL,
	principal   text NOT NULL,
	PRIMARY KEY (tenant_id, principal)
);
`

// EnsureSchema creates every table the store needs if it does not already
// exist. Idempotent — safe to call on every process start, mirroring the
// teacher's own "no separate migration runner for this size of schema"
// posture.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	return err
}
