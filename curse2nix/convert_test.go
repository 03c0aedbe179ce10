package curse2nix

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leocov-dev/curse2nix/core"
)

func v1Server(t *testing.T) *httptest.Server {
	t.Helper()
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Files live on the CDN, which must never see the API key
		if strings.HasPrefix(r.URL.Path, "/files/") {
			assert.Empty(t, r.Header.Get("x-api-key"), "API key sent to the file host")
			if r.URL.Path == "/files/bar lib.jar" {
				_, _ = fmt.Fprint(w, "bar")
				return
			}
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/mods/10":
			_, _ = fmt.Fprint(w, `{"data": {"id": 10, "name": "Bar Lib", "slug": "bar",
				"links": {"websiteUrl": "https://www.curseforge.com/minecraft/mc-mods/bar-lib"}}}`)
		case "/mods/10/files/20/download-url":
			_, _ = fmt.Fprintf(w, `{"data": %q}`, ts.URL+"/files/bar%20lib.jar")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testManifest() Manifest {
	return Manifest{
		Minecraft: core.MinecraftInstance{Version: "1.20.1"},
		Files:     []core.ManifestFile{{ProjectID: 10, FileID: 20, Required: true}},
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()

	assert.Equal(t, "legacy", opts.API)
	assert.Equal(t, core.DefaultConcurrency, opts.Concurrency)
	assert.Equal(t, core.DefaultRetryPolicy, opts.Retry)
	assert.Equal(t, core.FormatNix, opts.Format)
}

func TestOptionsPartialRetryPolicy(t *testing.T) {
	opts := Options{Retry: RetryPolicy{MaxAttempts: 50}}.withDefaults()

	assert.Equal(t, 50, opts.Retry.MaxAttempts)
	assert.Equal(t, core.DefaultRetryPolicy.BaseDelay, opts.Retry.BaseDelay)
	assert.Equal(t, core.DefaultRetryPolicy.MaxDelay, opts.Retry.MaxDelay)
}

func TestConvertV1(t *testing.T) {
	ts := v1Server(t)

	out, err := Convert(context.Background(), testManifest(), Options{
		API:       "v1",
		BaseURL:   ts.URL,
		APIKey:    "secret",
		RateLimit: 100,
	})
	require.NoError(t, err)
	require.Len(t, out.Mods, 1)

	mod := out.Mods[0]
	assert.Equal(t, "bar-lib", mod.Slug)
	assert.Equal(t, "Bar Lib", mod.Title)
	assert.Equal(t, "bar lib.jar", mod.FileName)
	assert.Equal(t, int64(3), mod.Size)
}

func TestConvertWrongKey(t *testing.T) {
	ts := v1Server(t)

	_, err := Convert(context.Background(), testManifest(), Options{
		API:     "v1",
		BaseURL: ts.URL,
		APIKey:  "wrong",
		Retry:   RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
	require.Error(t, err)
	assert.True(t, core.IsPermanent(err))
}

func TestConvertFile(t *testing.T) {
	ts := v1Server(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"minecraft": {"version": "1.20.1"},
		"files": [{"projectID": 10, "fileID": 20, "required": true}]}`), 0o644))
	outPath := filepath.Join(dir, "mods.nix")

	out, err := ConvertFile(context.Background(), in, outPath, Options{API: "v1", BaseURL: ts.URL, APIKey: "secret"})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, out.AsNix(), string(data))
	assert.Contains(t, string(data), `"encoded"="bar%20lib.jar";`)
}

func TestConvertFileBadFormat(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "mods.json")

	_, err := ConvertFile(context.Background(), filepath.Join(dir, "missing.json"), outPath, Options{Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
