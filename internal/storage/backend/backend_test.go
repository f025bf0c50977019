package backend

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/groupcal/internal/config"
	"github.com/mmynk/groupcal/internal/restapi"
	"github.com/mmynk/groupcal/internal/storage/gormstore"
	"github.com/mmynk/groupcal/internal/storage/rest"
	"github.com/mmynk/groupcal/internal/storage/sqlite"
	"github.com/mmynk/groupcal/internal/storage/storagetest"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		cfg   config.StoreConfig
		check func(t *testing.T, store any)
	}{
		{
			name: "sqlite",
			cfg:  config.StoreConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "a.db")},
			check: func(t *testing.T, store any) {
				if _, ok := store.(*sqlite.SQLiteStore); !ok {
					t.Errorf("got %T, want *sqlite.SQLiteStore", store)
				}
			},
		},
		{
			name: "gorm",
			cfg:  config.StoreConfig{Backend: config.BackendGorm, GormDSN: filepath.Join(dir, "b.db")},
			check: func(t *testing.T, store any) {
				if _, ok := store.(*gormstore.Store); !ok {
					t.Errorf("got %T, want *gormstore.Store", store)
				}
			},
		},
		{
			name: "rest",
			cfg: config.StoreConfig{
				Backend:     config.BackendREST,
				RESTBaseURL: "http://127.0.0.1:1/store",
				RESTToken:   "t",
				RESTTimeout: time.Second,
			},
			check: func(t *testing.T, store any) {
				if _, ok := store.(*rest.Store); !ok {
					t.Errorf("got %T, want *rest.Store", store)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer store.Close()
			tt.check(t, store)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Backend: "etcd"})
	if err == nil || !strings.Contains(err.Error(), "unknown store backend") {
		t.Errorf("expected unknown backend error, got %v", err)
	}
}

func TestOpenPostgresUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Open(ctx, config.StoreConfig{
		Backend:     config.BackendPostgres,
		DatabaseURL: "postgres://nobody@127.0.0.1:1/none?connect_timeout=1",
	})
	if err == nil {
		t.Error("expected error for unreachable postgres")
	}
}

// Two instances sharing one store through the REST backend see each other's writes.
func TestRESTBackendSharesStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	primary, err := Open(ctx, config.StoreConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "primary.db"),
	})
	if err != nil {
		t.Fatalf("Open primary failed: %v", err)
	}
	defer primary.Close()

	server := httptest.NewServer(restapi.NewRouter(primary, "/store", "shared"))
	defer server.Close()

	remote, err := Open(ctx, config.StoreConfig{
		Backend:     config.BackendREST,
		RESTBaseURL: server.URL + "/store",
		RESTToken:   "shared",
		RESTTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Open remote failed: %v", err)
	}
	defer remote.Close()

	group := storagetest.NewGroup("Shared", "owner-1")
	if err := remote.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup via REST failed: %v", err)
	}

	got, err := primary.GetGroupByID(ctx, group.ID)
	if err != nil || got == nil {
		t.Fatalf("primary did not see group: %+v, %v", got, err)
	}
	if got.Name != "Shared" {
		t.Errorf("Name = %q, want Shared", got.Name)
	}
}
