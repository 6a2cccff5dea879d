package formflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/source/httpsource"
	"github.com/goliatone/go-formflow/pkg/source/memory"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func newRuntime(t *testing.T, opts ...Option) (*Runtime, *memory.Store) {
	t.Helper()
	cat := testsupport.MustLoadCatalog(t, testsupport.Fixture("screens.yaml"))
	store := testsupport.MustSeedStore(t, testsupport.Fixture("records.yaml"), testsupport.SequentialIDs())

	rt, err := New(cat, store, opts...)
	require.NoError(t, err)
	return rt, store
}

func TestListScreenPaging(t *testing.T) {
	t.Parallel()

	rt, _ := newRuntime(t)
	screen, err := rt.ListScreen("payments")
	require.NoError(t, err)
	require.NoError(t, screen.Refresh(testsupport.Context()))

	view := screen.View()
	require.Equal(t, 2, view.TotalPages)
	require.Len(t, view.Rows, 2)
	require.Equal(t, "p2", view.Rows[0].String("id"))
}

func TestListScreenDefaultPageSize(t *testing.T) {
	t.Parallel()

	rt, _ := newRuntime(t, WithPageSize(3))
	screen, err := rt.ListScreen("sites")
	require.NoError(t, err)
	require.NoError(t, screen.Refresh(testsupport.Context()))
	require.Equal(t, 3, screen.View().Query.PageSize)
}

func TestCreateAndEditForms(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rt, store := newRuntime(t, WithMetrics(reg), WithRetryPolicy(options.RetryPolicy{}))
	ctx := context.Background()

	create, err := rt.CreateForm("payments")
	require.NoError(t, err)
	defer create.Close()
	require.NoError(t, create.Mount(ctx))
	create.Wait()
	require.NoError(t, create.UpdateField("site", "Harbor"))
	require.NoError(t, create.UpdateField("amount", "5"))
	_, err = create.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, store.Len("payments"))

	edit, err := rt.EditForm(ctx, "payments", "p1")
	require.NoError(t, err)
	defer edit.Close()
	require.NoError(t, edit.Mount(ctx))
	edit.Wait()
	require.Equal(t, "Harbor", edit.Value("site"))
	require.NoError(t, edit.UpdateField("amount", "31"))
	sub, err := edit.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, "p1", sub.ID)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestUnknownScreenAndRecord(t *testing.T) {
	t.Parallel()

	rt, _ := newRuntime(t)
	_, err := rt.ListScreen("missing")
	require.Error(t, err)
	_, err = rt.EditForm(context.Background(), "payments", "nope")
	require.Error(t, err)
}

func TestNewValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := New(nil, memory.New())
	require.Error(t, err)
	_, err = New(&schema.Catalog{}, nil)
	require.Error(t, err)
}

func TestOpenStorePicksBackend(t *testing.T) {
	t.Parallel()

	store, closeFn, err := OpenStore(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &memory.Store{}, store)

	store, closeFn, err = OpenStore(context.Background(), &config.Config{APIBaseURL: "http://localhost:9999/api"}, nil)
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &httpsource.Client{}, store)

	_, _, err = OpenStore(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestSessionFor(t *testing.T) {
	t.Parallel()

	require.IsType(t, session.Static(""), SessionFor("opaque-token"))
	require.IsType(t, &session.JWTProvider{}, SessionFor("a.b.c"))
	require.Nil(t, SessionFor(""))
	require.Nil(t, SessionFor("   "))
}

func TestOpenStoreBlankTokenSendsNoAuthorization(t *testing.T) {
	t.Parallel()

	headers := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"7","name":"Harbor"}]}`))
	}))
	t.Cleanup(srv.Close)

	for _, tc := range []struct {
		token string
		want  string
	}{
		{token: "", want: ""},
		{token: "opaque", want: "Bearer opaque"},
	} {
		store, closeFn, err := OpenStore(context.Background(), &config.Config{APIBaseURL: srv.URL, APIToken: tc.token}, nil)
		require.NoError(t, err)
		records, err := store.Fetch(context.Background(), "sites")
		closeFn()
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, tc.want, <-headers)
	}
}
