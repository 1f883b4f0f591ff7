package fs_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/store"
	_ "github.com/dropDatabas3/comfygate/internal/store/adapters/fs"
)

func openFS(t *testing.T) store.Connection {
	t.Helper()
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{
		Name:   "fs",
		FSRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("open fs adapter: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestFSTenantCreateAndGet(t *testing.T) {
	conn := openFS(t)
	ctx := context.Background()

	tenant, err := conn.Tenants().Create(ctx, "Acme", nil)
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	if tenant.ID != 1 {
		t.Errorf("expected id 1, got %d", tenant.ID)
	}
	if tenant.APIKey == "" {
		t.Error("expected generated api key")
	}
	if !tenant.IsActive {
		t.Error("expected tenant active")
	}

	got, err := conn.Tenants().GetByAPIKey(ctx, tenant.APIKey)
	if err != nil {
		t.Fatalf("get by api key: %v", err)
	}
	if got.Name != "Acme" {
		t.Errorf("expected Acme, got %s", got.Name)
	}

	if _, err := conn.Tenants().GetByAPIKey(ctx, "nope"); !repository.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := conn.Tenants().Create(ctx, "Acme", nil); !repository.IsConflict(err) {
		t.Errorf("expected ErrConflict for duplicate name, got %v", err)
	}
}

func TestFSUserConflicts(t *testing.T) {
	conn := openFS(t)
	ctx := context.Background()

	in := repository.CreateUserInput{Username: "alice", Email: "a@example.com", PasswordHash: "x", TenantID: 1}
	if _, err := conn.Users().Create(ctx, in); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := conn.Users().Create(ctx, in); !repository.IsConflict(err) {
		t.Errorf("expected ErrConflict for duplicate username, got %v", err)
	}

	in2 := repository.CreateUserInput{Username: "bob", Email: "a@example.com", PasswordHash: "x", TenantID: 1}
	if _, err := conn.Users().Create(ctx, in2); !repository.IsConflict(err) {
		t.Errorf("expected ErrConflict for duplicate email, got %v", err)
	}

	// Email vacío no colisiona consigo mismo.
	for _, name := range []string{"carol", "dave"} {
		if _, err := conn.Users().Create(ctx, repository.CreateUserInput{Username: name, PasswordHash: "x", TenantID: 1}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
}

func TestFSTaskLifecycle(t *testing.T) {
	conn := openFS(t)
	ctx := context.Background()

	rec, err := conn.Tasks().Create(ctx, 7, "rh-123", "image")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if !strings.HasPrefix(rec.TenantTaskID, "tenant_") {
		t.Errorf("unexpected id format: %s", rec.TenantTaskID)
	}
	if len(rec.TenantTaskID) != len("tenant_")+16 {
		t.Errorf("unexpected id length: %s", rec.TenantTaskID)
	}
	if rec.Status != repository.TaskStatusPending {
		t.Errorf("expected PENDING, got %s", rec.Status)
	}

	if err := conn.Tasks().MarkSuccess(ctx, rec.TenantTaskID, []byte(`{"ok":true}`), []string{"7/a.png"}); err != nil {
		t.Fatalf("mark success: %v", err)
	}

	got, err := conn.Tasks().GetByTenantTaskID(ctx, rec.TenantTaskID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != repository.TaskStatusSuccess {
		t.Errorf("expected SUCCESS, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at set")
	}

	if err := conn.Tasks().MarkFailed(ctx, rec.TenantTaskID, "boom"); !repository.IsTerminal(err) {
		t.Errorf("expected ErrTerminal on second transition, got %v", err)
	}
	if err := conn.Tasks().MarkFailed(ctx, "tenant_missing0000000", "boom"); !repository.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFSListByUserFilterAndPagination(t *testing.T) {
	conn := openFS(t)
	ctx := context.Background()

	types := []string{"image", "video", "image", "image"}
	ids := make([]string, 0, len(types))
	for _, tt := range types {
		rec, err := conn.Tasks().Create(ctx, 1, "rh", tt)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, rec.TenantTaskID)
		time.Sleep(2 * time.Millisecond) // orden por created_at
	}
	// Task de otro usuario: nunca aparece.
	if _, err := conn.Tasks().Create(ctx, 2, "rh", "image"); err != nil {
		t.Fatalf("create other: %v", err)
	}

	all, err := conn.Tasks().ListByUser(ctx, 1, repository.ListTasksFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(all))
	}
	if all[0].TenantTaskID != ids[3] {
		t.Errorf("expected newest first, got %s", all[0].TenantTaskID)
	}

	// El filtro aplica antes de paginar: de las 3 "image" ordenadas desc,
	// offset 1 limit 1 es la del medio.
	page, err := conn.Tasks().ListByUser(ctx, 1, repository.ListTasksFilter{TaskType: "image", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 task, got %d", len(page))
	}
	if page[0].TenantTaskID != ids[2] {
		t.Errorf("expected %s, got %s", ids[2], page[0].TenantTaskID)
	}

	// Offset más allá del final: página vacía, no error.
	empty, err := conn.Tasks().ListByUser(ctx, 1, repository.ListTasksFilter{Offset: 100})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d", len(empty))
	}
}

func TestFSTerminalWriteOnceConcurrent(t *testing.T) {
	conn := openFS(t)
	ctx := context.Background()

	rec, err := conn.Tasks().Create(ctx, 1, "rh", "image")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				errs[i] = conn.Tasks().MarkSuccess(ctx, rec.TenantTaskID, nil, nil)
			} else {
				errs[i] = conn.Tasks().MarkFailed(ctx, rec.TenantTaskID, "boom")
			}
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case repository.IsTerminal(err):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winning transition, got %d", wins)
	}
}

func TestFSUsageAppendAndList(t *testing.T) {
	conn := openFS(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := conn.Usage().Append(ctx, repository.UsageEvent{TenantID: 1, UserID: 10, Endpoint: "/v1/tasks"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := conn.Usage().Append(ctx, repository.UsageEvent{TenantID: 2, UserID: 11, Endpoint: "/v1/tasks"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := conn.Usage().ListByTenant(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.TenantID != 1 {
			t.Errorf("expected tenant 1, got %d", ev.TenantID)
		}
	}
}

func TestStoreUnknownDriver(t *testing.T) {
	_, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "bolt"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Errorf("unexpected error: %v", err)
	}
}
