package manager_test

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"github.com/five82/appdeck/internal/apptest"
	"github.com/five82/appdeck/internal/manager"
)

func TestClient_AgainstFakeAPI(t *testing.T) {
	t.Parallel()

	srv := apptest.New(t)
	srv.SetCatalog(
		manager.App{ID: "bitcoin", Name: "Bitcoin Node"},
		manager.App{ID: "lnd", Name: "Lightning Node", UpdateAvailable: true},
	)
	srv.SetInstalled("bitcoin")

	c, err := manager.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	installed, err := c.ListInstalled(ctx)
	if err != nil {
		t.Fatalf("ListInstalled returned error: %v", err)
	}
	if len(installed) != 1 || installed[0].ID != "bitcoin" {
		t.Fatalf("ListInstalled = %#v, want bitcoin only", installed)
	}

	catalog, err := c.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog returned error: %v", err)
	}
	if len(catalog) != 2 || !catalog[1].UpdateAvailable {
		t.Fatalf("ListCatalog = %#v, want 2 apps with lnd update", catalog)
	}

	for _, call := range []func(context.Context, string) error{c.Install, c.Uninstall, c.Update} {
		if err := call(ctx, "lnd"); err != nil {
			t.Fatalf("action returned error: %v", err)
		}
	}

	want := []string{
		"GET /v1/apps?installed=1",
		"GET /v1/apps",
		"POST /v1/apps/lnd/install",
		"POST /v1/apps/lnd/uninstall",
		"POST /v1/apps/lnd/update",
	}
	if got := srv.Requests(); !reflect.DeepEqual(got, want) {
		t.Fatalf("requests = %v, want %v", got, want)
	}
}

func TestClient_UnknownAppIsTransportError(t *testing.T) {
	t.Parallel()

	srv := apptest.New(t)
	c, err := manager.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	err = c.Install(context.Background(), "ghost")
	if !manager.IsTransportError(err) {
		t.Fatalf("Install error = %v, want TransportError", err)
	}

	srv.Fail(apptest.ListInstalled, http.StatusInternalServerError)
	if _, err := c.ListInstalled(context.Background()); !manager.IsTransportError(err) {
		t.Fatalf("ListInstalled error = %v, want TransportError", err)
	}
}
