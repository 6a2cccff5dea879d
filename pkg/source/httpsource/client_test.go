package httpsource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/source"
)

func TestFetchUsesBearerAndResultsPath(t *testing.T) {
	t.Parallel()

	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/sites", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("active")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"items":[{"id":7,"name":"Harbor"},"skip",{"id":8,"name":"Depot"}]}}`)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL+"/api/v1", session.Static("tok"),
		WithEndpoint("sites", Endpoint{ResultsPath: "data.items", Params: map[string]string{"active": "true"}}))
	require.NoError(t, err)

	records, err := client.Fetch(context.Background(), "sites")
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, "true", gotQuery)
	require.Len(t, records, 2)
	require.Equal(t, "Depot", records[1].String("name"))
}

func TestFetchDefaultEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[{"id":"e1"}]}`)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, nil)
	require.NoError(t, err)
	records, err := client.Fetch(context.Background(), "employees")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestCreateAndUpdate(t *testing.T) {
	t.Parallel()

	var bodies []map[string]any
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		methods = append(methods, r.Method+" "+r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"id": 101}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, session.Static("tok"))
	require.NoError(t, err)

	id, err := client.Create(context.Background(), "payments", map[string]any{"site_id": "7"})
	require.NoError(t, err)
	require.Equal(t, "101", id)

	id, err = client.Update(context.Background(), "payments", "42", map[string]any{"site_id": "8"})
	require.NoError(t, err)
	require.Equal(t, "42", id)

	if diff := cmp.Diff([]string{"POST /payments", "PATCH /payments/42"}, methods); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "8", bodies[1]["site_id"])
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		kind   source.Kind
		fields map[string]any
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, source.KindUnauthorized, nil},
		{"unavailable", http.StatusServiceUnavailable, ``, source.KindNetwork, nil},
		{"validation envelope", http.StatusUnprocessableEntity, `{"errors":{"amount":["must be positive"]}}`, source.KindServer,
			map[string]any{"amount": []any{"must be positive"}}},
		{"bare field map", http.StatusBadRequest, `{"site_id":"unknown"}`, source.KindServer,
			map[string]any{"site_id": "unknown"}},
		{"internal", http.StatusInternalServerError, `{"detail":"boom"}`, source.KindServer, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			t.Cleanup(srv.Close)

			client, err := New(srv.URL, nil)
			require.NoError(t, err)
			_, err = client.Create(context.Background(), "payments", map[string]any{})
			require.Error(t, err)
			require.Equal(t, tc.kind, source.KindOf(err))
			if diff := cmp.Diff(tc.fields, source.FieldErrorsOf(err)); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissingSessionIsUnauthorizedWithoutRequest(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, session.Static(""))
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), "sites")
	require.True(t, source.IsUnauthorized(err))
	require.ErrorIs(t, err, source.ErrMissingSession)
	require.False(t, called)
}

func TestTransportFailureIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := New(url, nil)
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), "sites")
	require.True(t, source.IsTransient(err))
}

func TestNewRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := New("/api", nil)
	require.Error(t, err)
}
