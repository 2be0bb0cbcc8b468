package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eugenenazirov/cfgbind/internal/binder"
	"github.com/eugenenazirov/cfgbind/internal/reload"
)

func writeSource(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "endpoint.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestRunRender(t *testing.T) {
	path := writeSource(t, "endpoint:\n  interface: {port: 9090}\n  name: svc\n")

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		if err := runRender(&out, renderOptions{source: path, format: "text"}); err != nil {
			t.Fatalf("runRender returned error: %v", err)
		}
		want := "endpoint:\n  interface_:\n    port = 9090\n\n  name = svc\n  path = /\n  serial = null\n  url = http://example.net\n\n"
		if out.String() != want {
			t.Fatalf("unexpected output:\n got %q\nwant %q", out.String(), want)
		}
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		if err := runRender(&out, renderOptions{source: path, format: "json"}); err != nil {
			t.Fatalf("runRender returned error: %v", err)
		}
		var decoded struct {
			Endpoint struct {
				Interface struct {
					Port int `json:"port"`
				} `json:"interface"`
				Serial *int `json:"serial"`
			} `json:"endpoint"`
		}
		if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Endpoint.Interface.Port != 9090 || decoded.Endpoint.Serial != nil {
			t.Fatalf("unexpected JSON output: %s", out.String())
		}
	})
}

func TestRunRenderLayered(t *testing.T) {
	path := writeSource(t, "endpoint:\n  interface: {port: 9090}\n")
	t.Setenv("MAINTEST_ENDPOINT__URL", "http://override")

	var out bytes.Buffer
	err := runRender(&out, renderOptions{source: path, layered: true, envPrefix: "MAINTEST_", indent: "# "})
	if err != nil {
		t.Fatalf("runRender returned error: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("#   url = http://override\n")) {
		t.Fatalf("expected env override in output, got %q", out.String())
	}
}

func TestRunRenderErrors(t *testing.T) {
	var out bytes.Buffer
	if err := runRender(&out, renderOptions{}); !errors.Is(err, reload.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}

	path := writeSource(t, "endpoint:\n  name: svc\n")
	if err := runRender(&out, renderOptions{source: path}); !errors.Is(err, binder.ErrMissingRequiredScope) {
		t.Fatalf("expected ErrMissingRequiredScope, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output on failure, got %q", out.String())
	}
}
