package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/app"
	"github.com/JakeFAU/hot100-crawler/internal/billboard"
	"github.com/JakeFAU/hot100-crawler/internal/config"
)

func chartHTML(top string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><div class="chart-number-one__title">%s</div>`, top)
	b.WriteString(`<div class="chart-number-one__artist">Lady Gaga</div>`)
	for rank := 2; rank <= billboard.ChartSize; rank++ {
		fmt.Fprintf(&b, `<div class="chart-list-item" data-rank="%d" data-title="Song %d" data-artist="Artist %d"></div>`,
			rank, rank, rank)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/archive/charts/1958": `<ul>
			<li class="year-list__decade__dropdown__item"><a href="/archive/charts/2008">2008</a></li>
			<li class="year-list__decade__dropdown__item"><a href="/archive/charts/2009">2009</a></li>
		</ul>`,
		"/archive/charts/2008/hot-100": `<table class="archive-table"><tbody>
			<tr><td><a href="/charts/hot-100/2008-12-27">Dec 27</a></td></tr>
		</tbody></table>`,
		"/archive/charts/2009/hot-100": `<table class="archive-table"><tbody>
			<tr><td><a href="/charts/hot-100/2009-04-11">Apr 11</a></td></tr>
		</tbody></table>`,
		"/charts/hot-100/2008-12-27": chartHTML("Single Ladies"),
		"/charts/hot-100/2009-04-11": chartHTML("Poker Face"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<html><body>" + body + "</body></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
billboard:
  base_url: %s
crawler:
  concurrency: 2
  respect_robots: false
  rate_limit_per_host: 0
%s`, baseURL, extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	t.Cleanup(func() {
		assert.NoError(t, root.Close())
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestYearsCommand(t *testing.T) {
	srv := newSiteServer(t)
	out, err := runCommand(t, "--config", writeConfig(t, srv.URL, ""), "years")
	require.NoError(t, err)

	var years []billboard.YearEntry
	require.NoError(t, json.Unmarshal([]byte(out), &years))
	require.Len(t, years, 2)
	assert.Equal(t, "2009", years[1].Year)
	assert.Equal(t, srv.URL+"/archive/charts/2009", years[1].ArchiveURI)
}

func TestDatesCommand(t *testing.T) {
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL, "")

	out, err := runCommand(t, "--config", cfg, "dates", "2009")
	require.NoError(t, err)
	var dates []string
	require.NoError(t, json.Unmarshal([]byte(out), &dates))
	assert.Equal(t, []string{srv.URL + "/charts/hot-100/2009-04-11"}, dates)

	_, err = runCommand(t, "--config", cfg, "dates", "1901")
	require.ErrorContains(t, err, "no archive years match")
}

func TestChartCommand(t *testing.T) {
	srv := newSiteServer(t)
	cfg := writeConfig(t, srv.URL, "")

	out, err := runCommand(t, "--config", cfg, "chart", "2009-04-11")
	require.NoError(t, err)
	var page billboard.ChartPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, billboard.ChartEntry{Rank: "1", Song: "Poker Face", Artist: "Lady Gaga"}, page.Entries[0])
	assert.Len(t, page.Entries, billboard.ChartSize)

	_, err = runCommand(t, "--config", cfg, "chart", srv.URL+"/charts/hot-100/1999-01-01")
	var fetchErr *billboard.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestCrawlCommand(t *testing.T) {
	srv := newSiteServer(t)
	outDir := t.TempDir()
	cfg := writeConfig(t, srv.URL, fmt.Sprintf(`
  years: ["2008", "2009"]
storage:
  local_dir: %s
`, outDir))

	out, err := runCommand(t, "--config", cfg, "crawl")
	require.NoError(t, err)

	var report crawlReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 2, report.ChartDates)
	assert.NotEmpty(t, report.RunID)

	assert.FileExists(t, filepath.Join(outDir, "hot-100", "2008-12-27.json"))
	assert.FileExists(t, filepath.Join(outDir, "hot-100", "2009-04-11.json"))
}

func TestInvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "not a url", "")
	_, err := runCommand(t, "--config", cfg, "years")
	require.ErrorContains(t, err, "load config")
}

func TestFailedCommandStillClosesApp(t *testing.T) {
	var closed atomic.Int32
	orig := newApp
	newApp = func(cfg config.Config, logger *zap.Logger) (*app.App, error) {
		a, err := app.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.OnClose(func() error {
			closed.Add(1)
			return nil
		})
		return a, nil
	}
	t.Cleanup(func() { newApp = orig })

	srv := newSiteServer(t)
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", writeConfig(t, srv.URL, ""), "chart", srv.URL + "/charts/hot-100/1999-01-01"})
	require.Error(t, root.ExecuteContext(context.Background()))

	require.NoError(t, root.Close())
	require.NoError(t, root.Close())
	assert.Equal(t, int32(1), closed.Load())
}
