package tokenizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimator()

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = e.CountTokens("hi")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.CountTokens("abcdefghijklmnop")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = e.CountTokens("你好世界")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "estimator", e.Name())
}

func TestEncodingFor(t *testing.T) {
	assert.Equal(t, "o200k_base", EncodingFor("gpt-4o-mini"))
	assert.Equal(t, "cl100k_base", EncodingFor("gpt-4-turbo"))
	assert.Equal(t, "cl100k_base", EncodingFor("gpt-35-turbo"))
	assert.Equal(t, "cl100k_base", EncodingFor("unknown-model"))
	assert.Equal(t, "tiktoken[o200k_base]", NewTiktoken("gpt-4o").Name())
}

func TestLookup_FallsBackToEstimator(t *testing.T) {
	c := Lookup("no-such-model-registered")
	assert.Equal(t, "estimator", c.Name())

	Register("test-model", fixedCounter(3))
	assert.Equal(t, "fixed", Lookup("test-model-v2").Name())
}

type fixedCounter int

func (f fixedCounter) CountTokens(string) (int, error) { return int(f), nil }
func (fixedCounter) Name() string                      { return "fixed" }

type failingCounter struct{}

func (failingCounter) CountTokens(string) (int, error) { return 0, errors.New("boom") }
func (failingCounter) Name() string                    { return "failing" }

func TestTrim(t *testing.T) {
	texts := []string{"a", "b", "c", "d"}

	out, err := Trim(fixedCounter(1), texts, 0)
	require.NoError(t, err)
	assert.Equal(t, texts, out)

	out, err = Trim(fixedCounter(1), texts, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, out)

	out, err = Trim(fixedCounter(5), texts, 2)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = Trim(failingCounter{}, texts, 2)
	require.Error(t, err)
}
