package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandard_LowercasesWithoutStopWords(t *testing.T) {
	// Given: the default analyzer
	a := MustStandard()

	// When: analyzing a sentence containing common English stop words
	tokens := a.Analyze("body", "The Quick Brown fox")

	// Then: nothing is dropped
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, tokens)
	assert.Equal(t, KindStandard, a.Name())
}

func TestStandard_WithStopWords(t *testing.T) {
	a, err := Standard("the", "A")
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog"}, a.Analyze("", "the cat a dog"))
}

func TestKeyword_SingleToken(t *testing.T) {
	a, err := Keyword()
	require.NoError(t, err)

	assert.Equal(t, []string{"Doc-1 Mixed"}, a.Analyze("id", "Doc-1 Mixed"))
}

func TestEnglish_Stems(t *testing.T) {
	a, err := English()
	require.NoError(t, err)

	tokens := a.Analyze("body", "broadcasting the results")
	assert.Equal(t, []string{"broadcast", "result"}, tokens)
}

func TestCode_SplitsIdentifiers(t *testing.T) {
	a, err := Code()
	require.NoError(t, err)

	tokens := a.Analyze("src", "getUserById parse_HTTPRequest x")
	assert.Equal(t, []string{"get", "user", "by", "id", "parse", "http", "request"}, tokens)
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New("klingon", nil)
	assert.Error(t, err)

	a, err := New("SIMPLE", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, a.Analyze("", "abc1def"))
}

func TestSanitize_StripsMarkup(t *testing.T) {
	assert.Equal(t, "hello world", Sanitize("<p>hello</p><b>world</b>"))
}

type countingAnalyzer struct {
	calls int
}

func (c *countingAnalyzer) Name() string { return "counting" }

func (c *countingAnalyzer) Analyze(field, text string) []string {
	c.calls++
	return []string{field + ":" + text}
}

func TestCached_AnalyzesOncePerInput(t *testing.T) {
	// Given: a cached analyzer
	inner := &countingAnalyzer{}
	c := NewCached(inner, 8)

	// When: the same input is analyzed repeatedly
	first := c.Analyze("f", "x")
	first[0] = "mutated"
	second := c.Analyze("f", "x")
	_ = c.Analyze("g", "x")

	// Then: the inner analyzer runs once per distinct (field, text)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, []string{"f:x"}, second)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "counting", c.Name())
}

func TestEngine_AdaptsCustomAnalyzer(t *testing.T) {
	stream := Engine(&countingAnalyzer{}, "title").Analyze([]byte("abc"))
	require.Len(t, stream, 1)
	assert.Equal(t, "title:abc", string(stream[0].Term))
	assert.Equal(t, 1, stream[0].Position)
}
