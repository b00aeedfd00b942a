//go:build integration

package processor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/scraper"
	"github.com/pauljones0/shift-code-watcher/internal/storage"
)

// Integration test that wires up a real scraper against a mock HTTP server,
// a real file store, and a mock notifier to test the full pipeline.

const codesPage = `<!DOCTYPE html>
<html>
<body>
<h2>Latest news</h2>
<table><tr><td>decoy</td><td>x</td><td><code>ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ</code></td><td>x</td></tr></table>
<h2>Every Borderlands 4 SHiFT Code for Golden Keys</h2>
<table>
	<tr><th>Reward</th><th>Added</th><th>Code</th><th>Expires</th></tr>
	<tr><td>3 Golden Keys</td><td>Nov 20, 2025</td><td><code>T9RBB-WT3F3-W6KHZ-9BSHT-9FT5Z</code></td><td>Nov 27, 2025</td></tr>
	%s
</table>
</body>
</html>`

const extraRow = `<tr><td>1 Golden Key</td><td>Nov 21, 2025</td><td><code>K9JBB-XXTBT-W6KHZ-3BJTB-9KZC5</code></td><td>Unknown</td></tr>`

func TestIntegration_FullPipeline(t *testing.T) {
	var withExtra atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		extra := ""
		if withExtra.Load() {
			extra = extraRow
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, codesPage, extra)
	}))
	defer server.Close()

	cfg := &config.Config{RecipientEmail: "vault@example.com"}
	fetcher := scraper.NewHTTPFetcher(5*time.Second, config.DefaultUserAgent, []string{"127.0.0.1"})
	s, err := scraper.New(server.URL, fetcher, scraper.DefaultSelectors())
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "known_codes.json"))
	n := &mockNotifier{}
	p := New(store, n, s, cfg)
	ctx := context.Background()

	// First run notifies everything on the page.
	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if !result.FirstRun || result.NewCount != 1 || !result.Notified {
		t.Errorf("first run result = %+v", result)
	}

	// Unchanged page: nothing new.
	result, err = p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if result.NewCount != 0 || result.FirstRun {
		t.Errorf("second run result = %+v", result)
	}

	// A code is added to the page.
	withExtra.Store(true)
	result, err = p.Run(ctx)
	if err != nil {
		t.Fatalf("third Run() error = %v", err)
	}
	if result.NewCount != 1 || result.NewCodes[0].Code != "K9JBB-XXTBT-W6KHZ-3BJTB-9KZC5" {
		t.Errorf("third run result = %+v", result)
	}
	if len(n.batches) != 2 {
		t.Errorf("Expected 2 notifications over 3 runs, got %d", len(n.batches))
	}

	known, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if known.Len() != 2 || known.Contains("ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ") {
		t.Errorf("Unexpected persisted set: %v", known.Codes)
	}
}
