package discovery

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexPage = `<!DOCTYPE html>
<html><body>
<table>
<tr><th>revision</th><th>build id</th></tr>
<tr id="ccc333nightlywin6420201007094019"><td>ccc333</td></tr>
<tr id="ccc333nightlylinux6420201007094019"><td>ccc333</td></tr>
<tr id="bbb222nightlywin6420201006215809"><td>bbb222</td></tr>
<tr id="dup999nightlywin6420201006215809"><td>dup999</td></tr>
<tr id="oddrow-nightlywin642020"><td>?</td></tr>
<tr id="eee555nightlywin64-aarch6420201006094019"><td>eee555</td></tr>
<tr id="aaa111nightlywin6420201005215809"><td>aaa111</td></tr>
<tr id="old000nightlywin6420200901000000"><td>old000</td></tr>
<tr class="noid"><td>x</td></tr>
</table>
</body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Releases(t *testing.T) {
	srv := serve(t, http.StatusOK, indexPage)

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	client := NewClient(cfg, srv.Client(), nil)

	releases, err := client.Releases(context.Background())
	require.NoError(t, err)

	// Oldest first, cutoff applied, one per build id. Of the two rows for
	// the same build id, the one listed lower on the page wins.
	assert.Equal(t, []models.Release{
		{Hash: "aaa111", BuildID: "20201005215809"},
		{Hash: "dup999", BuildID: "20201006215809"},
		{Hash: "ccc333", BuildID: "20201007094019"},
	}, releases)
}

func TestClient_NonOKStatus(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "down")

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	_, err := NewClient(cfg, nil, nil).Releases(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := serve(t, http.StatusOK, "")
	url := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.URL = url
	_, err := NewClient(cfg, nil, nil).Releases(context.Background())
	assert.Error(t, err)
}

func TestClient_EmptyIndex(t *testing.T) {
	srv := serve(t, http.StatusOK, "<html></html>")

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	releases, err := NewClient(cfg, nil, nil).Releases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, releases)
}

func TestClient_ParseRows_OtherPlatformsSkippedSilently(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	client := NewClient(DefaultConfig(), nil, logger)

	releases := client.parseRows([]string{
		"aaa111nightlywin6420201005215809",
		"bbb222nightlywin64-aarch6420201006094019",
		"ccc333nightlywin64-aarch6420201007094019",
	})

	assert.Equal(t, []models.Release{{Hash: "aaa111", BuildID: "20201005215809"}}, releases)
	assert.Empty(t, logs.String())
}

func TestClient_ParseRows_WarnsOnFormatDrift(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	client := NewClient(DefaultConfig(), nil, logger)

	releases := client.parseRows([]string{"ABC-nightlywin6420201005215809"})

	assert.Empty(t, releases)
	assert.Contains(t, logs.String(), "unexpected release row")
}
