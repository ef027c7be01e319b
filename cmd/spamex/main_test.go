package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/coregx/spamex"
	"github.com/coregx/spamex/prefilter"
	"github.com/coregx/spamex/store"
	"github.com/coregx/spamex/stream"
	"github.com/coregx/spamex/token"
)

func fooDocument() []token.Token {
	return []token.Token{
		token.NewDoctype("test"),
		token.NewOpen(""),
		token.NewReference(".", false),
		token.NewOpen("Foo"),
		token.NewReference("bar", false),
		token.NewOpen("Bar"),
		token.NewClose(),
		token.NewReference("baz", false),
		token.NewOpen("Baz"),
		token.NewClose(),
		token.NewClose(),
		token.NewClose(),
	}
}

const fooYAML = `
language: test
root:
  children:
    - ref: .
      node:
        type: Foo
        children:
          - ref: bar
            node: {type: Bar}
          - ref: baz
            node: {type: Baz}
`

func writeJSONDoc(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, stream.WriteJSON(&buf, slices.Values(fooDocument())))
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireExit(t *testing.T, err error, code int) {
	t.Helper()
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, code, exit.code)
}

func TestMatchCommand(t *testing.T) {
	path := writeJSONDoc(t, t.TempDir())

	out, err := run(t, "", "match", "--no-color", "<Bar/>", path)
	require.NoError(t, err)
	assert.Equal(t, path+":4-6 <Bar>\n", out)
}

func TestMatchCommandGlobalJSON(t *testing.T) {
	path := writeJSONDoc(t, t.TempDir())

	out, err := run(t, "", "match", "-g", "--json", "<? />", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	var types []string
	for _, line := range lines {
		var rec matchRecord
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, path, rec.File)
		assert.Equal(t, "<? />", rec.Pattern)
		types = append(types, rec.Type)
	}
	assert.Equal(t, []string{"Bar", "Baz", "Foo"}, types)
}

func TestMatchCommandNoMatch(t *testing.T) {
	path := writeJSONDoc(t, t.TempDir())

	tests := []string{"<Qux/>", "<Foo/> <Foo/>"}
	for _, pattern := range tests {
		t.Run(pattern, func(t *testing.T) {
			out, err := run(t, "", "match", "--no-color", pattern, path)
			requireExit(t, err, 1)
			assert.Contains(t, out, "no match")
		})
	}
}

func TestMatchCommandYAMLAndStdin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fooYAML), 0o644))

	out, err := run(t, "", "match", "--no-color", "<Baz/>", path)
	require.NoError(t, err)
	assert.Contains(t, out, "<Baz>")

	out, err = run(t, fooYAML, "match", "--no-color", "<Foo/>")
	require.NoError(t, err)
	assert.Equal(t, "-:2-10 <Foo>\n", out)

	data, err := os.ReadFile(writeJSONDoc(t, dir))
	require.NoError(t, err)
	out, err = run(t, string(data), "match", "--no-color", "<Foo/>", "-")
	require.NoError(t, err)
	assert.Equal(t, "-:2-10 <Foo>\n", out)
}

func TestMatchCommandErrors(t *testing.T) {
	path := writeJSONDoc(t, t.TempDir())

	_, err := run(t, "", "match", "<Foo", path)
	assert.Error(t, err)

	_, err = run(t, "", "match", "<Foo/>", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = run(t, "", "match")
	assert.Error(t, err)

	_, err = run(t, `{"kind":"openNode","type":"Foo"}`, "match", "<Foo/>")
	assert.ErrorContains(t, err, "doctype")
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONDoc(t, dir)
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`
name: test-rules
rules:
  - name: leaves
    pattern: "<Bar/> | <Baz/>"
    global: true
  - name: missing
    pattern: "<Qux/>"
`), 0o644))

	out, err := run(t, "", "check", "--no-color", "--config", rules, path)
	requireExit(t, err, 1)
	assert.Equal(t, path+":4-6 [leaves] <Bar>\n"+path+":7-9 [leaves] <Baz>\n", out)
}

func TestCheckCommandClean(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONDoc(t, dir)
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - name: none\n    pattern: \"<Qux/>\"\n"), 0o644))

	out, err := run(t, "", "check", "--config", rules, path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoadRulesErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no rules", "name: empty\n", errNoRules.Error()},
		{"unknown field", "rules:\n  - name: a\n    patern: \"<A/>\"\n", "patern"},
		{"unnamed rule", "rules:\n  - pattern: \"<A/>\"\n", "has no name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-")+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := loadRules(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := loadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "", "parse", "(<Foo/> | <Bar/>)+")
	require.NoError(t, err)
	assert.Contains(t, out, "prefilter: prefilter(Bar|Foo)")
	assert.Contains(t, out, "pattern:")
	assert.Contains(t, out, "initial:")

	_, err = run(t, "", "parse", "<Foo/>{5,2}")
	assert.Error(t, err)
}

func TestStoreCommands(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONDoc(t, dir)
	db := filepath.Join(dir, "spamex.db")

	out, err := run(t, "", "store", "--db", db, "put", "foo", path)
	require.NoError(t, err)
	assert.Equal(t, "stored foo (12 tokens)\n", out)

	out, err = run(t, "", "store", "--db", db, "ls")
	require.NoError(t, err)
	assert.Equal(t, "foo\t12\n", out)

	out, err = run(t, "", "store", "--db", db, "cat", "foo")
	require.NoError(t, err)
	got, err := stream.Collect(context.Background(), stream.NewJSONSource(strings.NewReader(out)))
	require.NoError(t, err)
	assert.Equal(t, fooDocument(), got)

	out, err = run(t, "", "match", "--no-color", "--db", db, "--doc", "foo", "<Baz/>")
	require.NoError(t, err)
	assert.Equal(t, db+":foo:7-9 <Baz>\n", out)

	_, err = run(t, "", "store", "--db", db, "rm", "foo")
	require.NoError(t, err)
	_, err = run(t, "", "store", "--db", db, "cat", "foo")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServeAndMatchOverWebSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- serveTokens(ctx, ln, fooDocument()) }()

	url := "ws://" + ln.Addr().String() + "/"
	out, err := run(t, "", "match", "--no-color", "-g", "--ws", url, "<Bar/> | <Baz/>")
	require.NoError(t, err)
	assert.Equal(t, url+":4-6 <Bar>\n"+url+":7-9 <Baz>\n", out)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunMatchLogsPrefilterHit(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	saved := logger
	logger = zap.New(core)
	t.Cleanup(func() { logger = saved })

	path := writeJSONDoc(t, t.TempDir())
	in, err := fileInput(path, nil)
	require.NoError(t, err)

	p := spamex.MustCompile("<Baz/>")
	var buf bytes.Buffer
	n, err := runMatch(context.Background(), newPrinter(&buf, false), p, prefilter.NewTracker(p.Prefilter()), []input{in})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits := logs.FilterMessage("Prefilter hit").All()
	require.Len(t, hits, 1)
	fields := hits[0].ContextMap()
	assert.Equal(t, path, fields["file"])
	assert.Equal(t, "Baz", fields["type"])
	assert.Positive(t, fields["offset"])
}

func TestWatchInputs(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONDoc(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		runs []string
	)
	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchInputs(ctx, []string{path}, func(p string) {
			mu.Lock()
			runs = append(runs, p)
			mu.Unlock()
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Writes arrive faster than the debounce interval; a run must still
	// happen while they continue.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, data, 0o644))
		case <-deadline:
			t.Fatal("no run after writing the watched file")
		}
	}

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, runs)
	assert.Equal(t, path, runs[0])
}

func TestWatchInputsSingleWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONDoc(t, dir)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchInputs(ctx, []string{path}, func(p string) { runs <- p })
	}()

	// Let the watcher register the directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	select {
	case p := <-runs:
		assert.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no run after a single write")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchRequiresFiles(t *testing.T) {
	assert.Error(t, watchInputs(context.Background(), nil, func(string) {}))
}
