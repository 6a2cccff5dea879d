package optionsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/source"
	"github.com/goliatone/go-formflow/pkg/source/httpsource"
)

func TestMountPath_JoinsBasePath(t *testing.T) {
	if got := MountPath("/admin"); got != "/admin/api/records" {
		t.Fatalf("unexpected mount path: %q", got)
	}
	if got := MountPath("admin"); got != "/admin/api/records" {
		t.Fatalf("unexpected mount path: %q", got)
	}
	if got := MountPath("/admin/", WithRoutePath("api/data")); got != "/admin/api/data" {
		t.Fatalf("unexpected mount path: %q", got)
	}
}

func TestRegisterRoutes_RegistersSubtree(t *testing.T) {
	mux := http.NewServeMux()
	pattern, err := RegisterRoutes(mux, "/admin", WithStore(seededStore()))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pattern != "/admin/api/records/" {
		t.Fatalf("unexpected registered pattern: %q", pattern)
	}

	req := httptest.NewRequest(http.MethodGet, pattern+"sites?q=depot", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := len(decodeList(t, rec).Data); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
}

func TestRegisterRoutes_MissingMux(t *testing.T) {
	if _, err := RegisterRoutes(nil, "/admin"); err == nil {
		t.Fatalf("expected error for nil mux")
	}
}

func TestComponent_ServesHTTPSourceClient(t *testing.T) {
	store := seededStore()
	component := New(
		WithStore(store),
		WithGuard(func(r *http.Request) error {
			if r.Header.Get("Authorization") != "Bearer secret" {
				return StatusError{Code: http.StatusUnauthorized}
			}
			return nil
		}),
	)

	mux := http.NewServeMux()
	if _, err := component.RegisterRoutes(mux, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := httpsource.New(srv.URL+"/api/records", session.Static("secret"))
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	ctx := context.Background()
	records, err := client.Fetch(ctx, "sites")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	id, err := client.Create(ctx, "sites", map[string]any{"name": "Harbor"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := store.Get("sites", id); !ok {
		t.Fatalf("expected created record %q in store", id)
	}

	anonymous, err := httpsource.New(srv.URL+"/api/records", session.Static("other"))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := anonymous.Fetch(ctx, "sites"); !source.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}
