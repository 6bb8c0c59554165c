package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ime-hub/postscrape/internal/config"
	"github.com/ime-hub/postscrape/internal/deadletter"
	"github.com/ime-hub/postscrape/internal/fetch"
	"github.com/ime-hub/postscrape/internal/storage"
)

type stubPage struct {
	body  string
	ctype string
	fail  bool
}

type stubFetcher struct {
	pages   map[string]stubPage
	fetched []string
}

func (f *stubFetcher) Fetch(url string) (*fetch.Payload, *deadletter.Failure) {
	f.fetched = append(f.fetched, url)
	page, ok := f.pages[url]
	if !ok || page.fail {
		return nil, deadletter.New(deadletter.KindFetchError, "원문을 불러오지 못했습니다.", "stub failure").With("url", url)
	}
	return &fetch.Payload{Body: []byte(page.body), ContentType: page.ctype, FinalURL: url}, nil
}

type testEnv struct {
	runner  *Runner
	fetcher *stubFetcher
	outDir  string
	sink    string
	slept   []time.Duration
}

func newTestEnv(t *testing.T, today string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		fetcher: &stubFetcher{pages: map[string]stubPage{}},
		outDir:  filepath.Join(dir, "out"),
		sink:    filepath.Join(dir, "failed.jsonl"),
	}
	store := storage.NewFileStore(env.outDir)
	if err := store.EnsureDir(); err != nil {
		t.Fatalf("ensure out dir: %v", err)
	}
	env.runner = NewRunner(env.fetcher, deadletter.NewSink(env.sink), store)
	env.runner.Sleep = func(d time.Duration) { env.slept = append(env.slept, d) }
	env.runner.Today = func() string { return today }
	return env
}

func (env *testEnv) sinkLines(t *testing.T) []map[string]any {
	t.Helper()
	file, err := os.Open(env.sink)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer file.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(sc.Bytes(), &obj); err != nil {
			t.Fatalf("bad sink line: %v", err)
		}
		lines = append(lines, obj)
	}
	return lines
}

func (env *testEnv) outFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(env.outDir)
	if err != nil {
		t.Fatalf("read out dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
	return doc
}

func TestRunFetchFailureDoesNotBlockLaterSources(t *testing.T) {
	env := newTestEnv(t, "2025-11-02")
	env.fetcher.pages["https://bad.example.com"] = stubPage{fail: true}
	env.fetcher.pages["https://good.example.com/api"] = stubPage{
		body:  `{"data":[{"title":"First Post","link":"https://good.example.com/1"},{"title":"Second Post","link":"https://good.example.com/2"}]}`,
		ctype: "application/json",
	}

	sources := []config.Source{
		{ID: "bad-src", Type: config.KindFeed, URL: "https://bad.example.com"},
		{ID: "good-api", Type: config.KindAPI, URL: "https://good.example.com/api"},
	}

	out := env.runner.Run(sources, Params{})
	if !out.PartialFailure {
		t.Fatalf("fetch failure must set the partial-failure flag")
	}
	if out.ExitCode() != ExitPartial {
		t.Fatalf("exit code = %d, want %d", out.ExitCode(), ExitPartial)
	}
	if out.Written != 2 {
		t.Fatalf("written = %d, want 2", out.Written)
	}

	files := env.outFiles(t)
	if len(files) != 2 {
		t.Fatalf("out files = %v", files)
	}

	// Sequence numbers advance per brand-new write.
	first := readDoc(t, filepath.Join(env.outDir, "2025-11-02-first-post.json"))
	second := readDoc(t, filepath.Join(env.outDir, "2025-11-02-second-post.json"))
	if first["id"] != "ime-2025-11-02-0001" || second["id"] != "ime-2025-11-02-0002" {
		t.Fatalf("ids = %v / %v", first["id"], second["id"])
	}

	lines := env.sinkLines(t)
	if len(lines) != 1 {
		t.Fatalf("sink lines = %v", lines)
	}
	if lines[0]["kind"] != "FetchError" || lines[0]["source"] != "bad-src" {
		t.Fatalf("sink line = %v", lines[0])
	}
}

func TestRunIsIdempotentAndMergesDeadline(t *testing.T) {
	env := newTestEnv(t, "2025-11-02")
	url := "https://board.example.com/api"
	env.fetcher.pages[url] = stubPage{
		body:  `[{"title":"Campus Notice","link":"https://board.example.com/1"}]`,
		ctype: "application/json",
	}
	sources := []config.Source{{ID: "board", Type: config.KindAPI, URL: url}}

	out := env.runner.Run(sources, Params{})
	if out.Written != 1 || out.PartialFailure {
		t.Fatalf("first run = %+v", out)
	}

	// Second run a week later: same item, now carrying a deadline.
	env.runner.Today = func() string { return "2025-11-09" }
	env.fetcher.pages[url] = stubPage{
		body:  `[{"title":"Campus Notice","link":"https://board.example.com/1","deadline":"2025-12-01"}]`,
		ctype: "application/json",
	}

	out = env.runner.Run(sources, Params{})
	if out.Written != 0 || out.Updated != 1 {
		t.Fatalf("second run = %+v", out)
	}
	if out.ExitCode() != ExitOK {
		t.Fatalf("exit code = %d", out.ExitCode())
	}

	files := env.outFiles(t)
	if len(files) != 1 {
		t.Fatalf("no duplicate files expected, got %v", files)
	}

	doc := readDoc(t, filepath.Join(env.outDir, "2025-11-02-campus-notice.json"))
	if doc["id"] != "ime-2025-11-02-0001" || doc["date_published"] != "2025-11-02" {
		t.Fatalf("identity changed: %v", doc)
	}
	if doc["last_checked_at"] != "2025-11-09" {
		t.Fatalf("last_checked_at = %v", doc["last_checked_at"])
	}
	if doc["deadline"] != "2025-12-01" {
		t.Fatalf("deadline = %v", doc["deadline"])
	}
}

func TestRunSinceFilterDropsSilently(t *testing.T) {
	env := newTestEnv(t, "2025-11-02")
	url := "https://old.example.com/api"
	env.fetcher.pages[url] = stubPage{
		body:  `[{"title":"Ancient Post","link":"https://old.example.com/1","published":"2023-01-15"}]`,
		ctype: "application/json",
	}
	sources := []config.Source{{ID: "old", Type: config.KindAPI, URL: url}}

	out := env.runner.Run(sources, Params{Since: "2025-01-01"})
	if out.Processed() != 0 {
		t.Fatalf("old post should be dropped, got %+v", out)
	}
	if out.PartialFailure {
		t.Fatalf("since-filter drops are not failures")
	}
	if lines := env.sinkLines(t); len(lines) != 0 {
		t.Fatalf("since-filter drops must not reach the sink: %v", lines)
	}
}

func TestRunUnsupportedSourceKind(t *testing.T) {
	env := newTestEnv(t, "2025-11-02")
	env.fetcher.pages["https://x.example.com"] = stubPage{body: "irrelevant"}
	sources := []config.Source{{ID: "weird", Type: "gopher", URL: "https://x.example.com"}}

	out := env.runner.Run(sources, Params{})
	if !out.PartialFailure {
		t.Fatalf("unsupported kind must set the failure flag")
	}
	lines := env.sinkLines(t)
	if len(lines) != 1 || lines[0]["kind"] != "UnsupportedSource" {
		t.Fatalf("sink lines = %v", lines)
	}
}

func TestRunRespectsGlobalLimitAndSkipsRemainingSources(t *testing.T) {
	env := newTestEnv(t, "2025-11-02")
	env.fetcher.pages["https://a.example.com"] = stubPage{
		body:  `[{"title":"A One","link":"https://a.example.com/1"},{"title":"A Two","link":"https://a.example.com/2"}]`,
		ctype: "application/json",
	}
	env.fetcher.pages["https://b.example.com"] = stubPage{
		body:  `[{"title":"B One","link":"https://b.example.com/1"}]`,
		ctype: "application/json",
	}
	sources := []config.Source{
		{ID: "a", Type: config.KindAPI, URL: "https://a.example.com"},
		{ID: "b", Type: config.KindAPI, URL: "https://b.example.com"},
	}

	out := env.runner.Run(sources, Params{Limit: 1})
	if out.Processed() != 1 {
		t.Fatalf("processed = %d, want 1", out.Processed())
	}
	if len(env.fetcher.fetched) != 1 {
		t.Fatalf("the second source must not be fetched once the cap is hit: %v", env.fetcher.fetched)
	}
}

func TestRunAppliesPerSourceCapAndPoliteDelay(t *testing.T) {
	env := newTestEnv(t, "2025-11-02")
	env.fetcher.pages["https://a.example.com"] = stubPage{
		body:  `[{"title":"A One"},{"title":"A Two"},{"title":"A Three"}]`,
		ctype: "application/json",
	}
	sources := []config.Source{{
		ID:        "a",
		Type:      config.KindAPI,
		URL:       "https://a.example.com",
		RateLimit: &config.RateLimit{MinDelayMs: 300},
	}}

	out := env.runner.Run(sources, Params{MaxPerSource: 2})
	if out.Written != 2 {
		t.Fatalf("per-source cap not applied: %+v", out)
	}
	if len(env.slept) != 1 || env.slept[0] != 300*time.Millisecond {
		t.Fatalf("polite delay = %v", env.slept)
	}
}

func TestRunSourceAllowlist(t *testing.T) {
	env := newTestEnv(t, "2025-11-02")
	env.fetcher.pages["https://b.example.com"] = stubPage{
		body:  `[{"title":"B One"}]`,
		ctype: "application/json",
	}
	sources := []config.Source{
		{ID: "a", Type: config.KindAPI, URL: "https://a.example.com"},
		{ID: "b", Type: config.KindAPI, URL: "https://b.example.com"},
	}

	out := env.runner.Run(sources, Params{Sources: "b"})
	if out.Written != 1 || out.PartialFailure {
		t.Fatalf("outcome = %+v", out)
	}
	if len(env.fetcher.fetched) != 1 || env.fetcher.fetched[0] != "https://b.example.com" {
		t.Fatalf("fetched = %v", env.fetcher.fetched)
	}
}
