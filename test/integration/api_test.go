package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/cfgbind/internal/api"
	"github.com/eugenenazirov/cfgbind/internal/reload"
	"github.com/eugenenazirov/cfgbind/internal/storage"
)

type fixture struct {
	router  http.Handler
	watcher *reload.Watcher
	path    string
}

func newFixture(t *testing.T, doc string) fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "endpoint.yaml")
	writeSource(t, path, doc)

	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStorage()
	watcher := reload.NewWatcher(reload.Loader{Path: path}, store, logger)
	if _, err := watcher.Reload(context.Background()); err != nil {
		t.Fatalf("initial reload: %v", err)
	}

	handler := api.NewHandler(store, watcher)
	return fixture{
		router:  api.NewRouter(handler, logger, api.WithLogging(false)),
		watcher: watcher,
		path:    path,
	}
}

func writeSource(t *testing.T, path, doc string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	fx := newFixture(t, "endpoint:\n  interface: {port: 9090}\n  name: svc\n")

	rec := performRequest(t, fx.router, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	rec = performRequest(t, fx.router, http.MethodGet, "/api/config/render", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from render, got %d", rec.Code)
	}
	want := "endpoint:\n  interface_:\n    port = 9090\n\n  name = svc\n  path = /\n  serial = null\n  url = http://example.net\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected render:\n got %q\nwant %q", rec.Body.String(), want)
	}

	writeSource(t, fx.path, "endpoint:\n  interface: {port: 9191}\n  serial: 7\n")
	rec = performRequest(t, fx.router, http.MethodPost, "/api/config/reload", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from reload, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, fx.router, http.MethodGet, "/api/config", nil, nil)
	var current struct {
		Config struct {
			Endpoint struct {
				Interface struct {
					Port int `json:"port"`
				} `json:"interface"`
				Name   *string `json:"name"`
				Serial *int    `json:"serial"`
			} `json:"endpoint"`
		} `json:"config"`
		Source     string `json:"source"`
		Generation uint64 `json:"generation"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&current); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	endpoint := current.Config.Endpoint
	if endpoint.Interface.Port != 9191 || endpoint.Name != nil || endpoint.Serial == nil || *endpoint.Serial != 7 {
		t.Fatalf("unexpected reloaded config: %+v", endpoint)
	}
	if current.Source != fx.path || current.Generation != 2 {
		t.Fatalf("unexpected metadata: source=%s generation=%d", current.Source, current.Generation)
	}
}

func TestIntegrationRejectedReloadKeepsSnapshot(t *testing.T) {
	fx := newFixture(t, "endpoint:\n  interface: {port: 9090}\n")

	writeSource(t, fx.path, "endpoint:\n  name: orphan\n")
	rec := performRequest(t, fx.router, http.MethodPost, "/api/config/reload", nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 from reload, got %d", rec.Code)
	}

	rec = performRequest(t, fx.router, http.MethodGet, "/api/config/render", nil, nil)
	if !bytes.Contains(rec.Body.Bytes(), []byte("port = 9090")) {
		t.Fatalf("expected previous snapshot to be served, got %q", rec.Body.String())
	}
}

func TestIntegrationBindDoesNotReplaceSnapshot(t *testing.T) {
	fx := newFixture(t, "endpoint:\n  interface: {port: 9090}\n")

	body := []byte(`{"endpoint": {"interface": {"port": 1234}}}`)
	rec := performRequest(t, fx.router, http.MethodPost, "/api/bind", body, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from bind, got %d", rec.Code)
	}

	rec = performRequest(t, fx.router, http.MethodGet, "/api/config/render", nil, nil)
	if !bytes.Contains(rec.Body.Bytes(), []byte("port = 9090")) {
		t.Fatalf("expected stored snapshot to be unchanged, got %q", rec.Body.String())
	}
}
