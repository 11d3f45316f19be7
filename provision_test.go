package provision_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/sitekit/provision"
)

func zipFixture(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseManifest(t *testing.T) {
	m, err := provision.ParseManifest([]byte(`
core:
  name: site
  version: "6.4"
plugins:
  - name: hello-dolly
`))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	if m.Core.Name != "site" {
		t.Errorf("core name = %q, want %q", m.Core.Name, "site")
	}
	if len(m.Plugins) != 1 || m.Plugins[0].Role != provision.RolePlugin {
		t.Errorf("plugins = %+v, want one plugin-role package", m.Plugins)
	}
}

func TestProvisionEndToEnd(t *testing.T) {
	coreZip := zipFixture(t, map[string]string{
		"wordpress/index.php": "<?php",
	})
	pluginZip := zipFixture(t, map[string]string{
		"hello-dolly/hello.php": "<?php",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/wordpress-6.4.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(coreZip)
	})
	mux.HandleFunc("/plugins/hello-dolly.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pluginZip)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	m, err := provision.ParseManifest([]byte(`
core:
  name: site
  version: "6.4"
plugins:
  - name: hello-dolly
`))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}

	root := t.TempDir()
	paths := provision.NewInstallPaths(root, m.Core.Name)
	orch := provision.NewOrchestrator(paths,
		provision.WithResolver(provision.NewResolver(provision.ResolverConfig{
			Scheme:       "http",
			RegistryHost: u.Host,
			CoreHost:     u.Host,
		})),
		provision.WithFetcher(provision.NewDownloader()),
	)

	report, err := orch.InstallAll(context.Background(), m)
	if err != nil {
		t.Fatalf("InstallAll failed: %v", err)
	}
	if !report.Ok() {
		t.Fatalf("report failures: %+v", report.Failures)
	}
	if _, err := os.Stat(filepath.Join(paths.BaseFolder, "index.php")); err != nil {
		t.Errorf("core file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(paths.PluginsFolder, "hello-dolly", "hello.php")); err != nil {
		t.Errorf("plugin file missing: %v", err)
	}
}
