package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/coregx/spamex"
	"github.com/coregx/spamex/stream"
	"github.com/coregx/spamex/token"
	"github.com/coregx/spamex/tree"
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

func openStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "spamex.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndRead(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	n, err := s.Put(ctx, "foo", stream.FromTokens(fooDocument()...))
	require.NoError(t, err)
	assert.Equal(t, len(fooDocument()), n)

	src, err := s.Source("foo")
	require.NoError(t, err)
	got, err := stream.Collect(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, fooDocument(), got)
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "foo", stream.FromTokens(fooDocument()...))
	require.NoError(t, err)
	_, err = s.Put(ctx, "foo", stream.FromTokens(fooDocument()[:1]...))
	require.NoError(t, err)

	infos, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []Info{{Name: "foo", Tokens: 1}}, infos)
}

func TestPutInvalidName(t *testing.T) {
	s := openStore(t)
	_, err := s.Put(context.Background(), "", stream.FromTokens(fooDocument()...))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestListAndDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		_, err := s.Put(ctx, name, stream.FromTokens(fooDocument()...))
		require.NoError(t, err)
	}

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "c", infos[2].Name)
	assert.Equal(t, len(fooDocument()), infos[1].Tokens)

	require.NoError(t, s.Delete("b"))
	assert.ErrorIs(t, s.Delete("b"), ErrNotFound)

	_, err = s.Source("b")
	assert.ErrorIs(t, err, ErrNotFound)

	infos, err = s.List()
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestMatchStoredDocument(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.Put(ctx, "foo", stream.FromTokens(fooDocument()...))
	require.NoError(t, err)

	config := spamex.DefaultConfig()
	config.Global = true
	p, err := spamex.CompileWithConfig("<Bar/> | <Baz/>", config)
	require.NoError(t, err)

	src, err := s.Source("foo")
	require.NoError(t, err)
	matches, err := p.FindAll(ctx, src)
	require.NoError(t, err)

	var types []string
	for _, m := range matches {
		types = append(types, tree.PrintOpenTag(m.Captures))
	}
	assert.Equal(t, []string{"<Bar>", "<Baz>"}, types)
}

func TestEarlyStopReleasesTransaction(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.Put(ctx, "foo", stream.FromTokens(fooDocument()...))
	require.NoError(t, err)

	src, err := s.Source("foo")
	require.NoError(t, err)
	_, ok, err := spamex.MustCompile("<Foo/>").Find(ctx, src)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, stream.ErrClosed)
	assert.NoError(t, src.Close())

	// Close waits for open read transactions.
	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read transaction still open")
	}
}

func TestStoreLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := openStore(t, WithLogger(zap.New(core)))

	_, err := s.Put(context.Background(), "foo", stream.FromTokens(fooDocument()...))
	require.NoError(t, err)

	entries := logs.FilterMessage("document stored").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "foo", entries[0].ContextMap()["name"])
}
