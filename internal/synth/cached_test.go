package synth

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSynthesizer answers "spec for <body>" and counts calls.
type countingSynthesizer struct {
	calls    int
	err      error
	endpoint string
}

func (s *countingSynthesizer) Synthesize(_ context.Context, body string) (string, bool, error) {
	s.calls++
	if s.err != nil {
		return "", false, s.err
	}
	return "spec for " + body, true, nil
}

func (s *countingSynthesizer) Available(context.Context) bool { return true }

func (s *countingSynthesizer) Endpoint() string { return s.endpoint }

func TestCachedSynthesizer_HitsCache(t *testing.T) {
	inner := &countingSynthesizer{endpoint: "http://a/generate"}
	c := NewCachedSynthesizer(inner, 8)

	first, ok1, err1 := c.Synthesize(context.Background(), "def a\nend")
	second, ok2, err2 := c.Synthesize(context.Background(), "def a\nend")

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, c.Len())
}

func TestCachedSynthesizer_DistinctBodies(t *testing.T) {
	inner := &countingSynthesizer{}
	c := NewCachedSynthesizer(inner, 0)

	_, _, _ = c.Synthesize(context.Background(), "def a\nend")
	_, _, _ = c.Synthesize(context.Background(), "def b\nend")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedSynthesizer_ErrorsNotCached(t *testing.T) {
	inner := &countingSynthesizer{err: stderrors.New("down")}
	c := NewCachedSynthesizer(inner, 8)

	_, _, err := c.Synthesize(context.Background(), "def a\nend")
	require.Error(t, err)
	_, _, err = c.Synthesize(context.Background(), "def a\nend")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, c.Len())
}

func TestCachedSynthesizer_EvictsLeastRecent(t *testing.T) {
	inner := &countingSynthesizer{}
	c := NewCachedSynthesizer(inner, 1)

	_, _, _ = c.Synthesize(context.Background(), "def a\nend")
	_, _, _ = c.Synthesize(context.Background(), "def b\nend")
	_, _, _ = c.Synthesize(context.Background(), "def a\nend")

	assert.Equal(t, 3, inner.calls)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCachedSynthesizer_PassThrough(t *testing.T) {
	c := NewCachedSynthesizer(&countingSynthesizer{endpoint: "http://x/generate"}, 1)

	assert.Equal(t, "http://x/generate", c.Endpoint())
	assert.True(t, c.Available(context.Background()))
}
