package memstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testPool             *pgxpool.Pool
	testPgContainer      testcontainers.Container
	skipStoreIntegration bool
)

func setupPostgres() {
	ctx := context.Background()

	var containerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker not available: %v", r)
			}
		}()
		req := testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "hub",
				"POSTGRES_PASSWORD": "hub",
				"POSTGRES_DB":       "hub_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		}
		testPgContainer, containerErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	}()

	if containerErr != nil {
		fmt.Printf("Docker not available, memstore integration tests will be skipped: %v\n", containerErr)
		skipStoreIntegration = true
		return
	}

	host, err := testPgContainer.Host(ctx)
	if err != nil {
		fmt.Printf("failed to get container host: %v\n", err)
		skipStoreIntegration = true
		return
	}
	port, err := testPgContainer.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Printf("failed to get container port: %v\n", err)
		skipStoreIntegration = true
		return
	}

	url := fmt.Sprintf("postgres://hub:hub@%s:%s/hub_test?sslmode=disable", host, port.Port())

	var pool *pgxpool.Pool
	for attempt := 0; attempt < 10; attempt++ {
		pool, err = pgxpool.New(ctx, url)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				break
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		fmt.Printf("failed to connect to postgres container: %v\n", err)
		skipStoreIntegration = true
		return
	}
	testPool = pool
}

func teardownPostgres() {
	if testPool != nil {
		testPool.Close()
	}
	if testPgContainer != nil {
		_ = testPgContainer.Terminate(context.Background())
	}
}

func TestMain(m *testing.M) {
	setupPostgres()
	code := m.Run()
	teardownPostgres()
	os.Exit(code)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	if skipStoreIntegration {
		t.Skip("docker not available, skipping memstore integration test")
	}

	if _, err := testPool.Exec(context.Background(), `
		DROP TABLE IF EXISTS handoff, session, preference, learning, message, agent, relation, observation, entity, tenant_membership, api_key CASCADE
	`); err != nil {
		t.Fatalf("failed to reset schema: %v", err)
	}

	store := New(testPool, nil, zerolog.Nop())
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	return store
}

func TestUpsertEntities_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := []EntityInput{{Name: "alpha", Type: "service"}}

	first, err := store.UpsertEntities(ctx, "tenant-a", in)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if len(first.CreatedIDs) != 1 || len(first.ExistingIDs) != 0 {
		t.Fatalf("expected one created entity on first upsert, got %+v", first)
	}

	second, err := store.UpsertEntities(ctx, "tenant-a", in)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if len(second.CreatedIDs) != 0 || len(second.ExistingIDs) != 1 {
		t.Fatalf("expected the second upsert to report an existing entity, got %+v", second)
	}
	if second.ExistingIDs[0] != first.CreatedIDs[0] {
		t.Fatalf("expected idempotent upsert to resolve to the same entity id")
	}
}

func TestConsumeHandoff_AtMostOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.WriteHandoff(ctx, "tenant-a", Handoff{
		ProjectID:        "proj-1",
		AuthoringAgentID: "agent-a",
		Summary:          "S",
	}); err != nil {
		t.Fatalf("write handoff failed: %v", err)
	}

	first, err := store.ConsumeHandoff(ctx, "tenant-a", "proj-1")
	if err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if first == nil || first.Summary != "S" {
		t.Fatalf("expected first consumer to receive the handoff, got %+v", first)
	}

	second, err := store.ConsumeHandoff(ctx, "tenant-a", "proj-1")
	if err != nil {
		t.Fatalf("second consume failed: %v", err)
	}
	if second != nil {
		t.Fatalf("expected second consumer to receive nil, got %+v", second)
	}
}

func TestEntityUpsert_IsTenantScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.UpsertEntities(ctx, "tenant-a", []EntityInput{{Name: "shared-name", Type: "service"}}); err != nil {
		t.Fatalf("tenant-a upsert failed: %v", err)
	}
	result, err := store.UpsertEntities(ctx, "tenant-b", []EntityInput{{Name: "shared-name", Type: "service"}})
	if err != nil {
		t.Fatalf("tenant-b upsert failed: %v", err)
	}
	if len(result.CreatedIDs) != 1 {
		t.Fatalf("expected tenant-b's identically-named entity to be created independently, got %+v", result)
	}
}
