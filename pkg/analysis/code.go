package analysis

import (
	"regexp"
	"strings"
	"unicode"

	bleveanalysis "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// CodeTokenizerName is the registry name of the identifier-aware tokenizer.
const CodeTokenizerName = "amansearch_code"

func init() {
	_ = registry.RegisterTokenizer(CodeTokenizerName, codeTokenizerConstructor)
}

// tokenRegex matches alphanumeric sequences (including underscores for initial split).
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func codeTokenizerConstructor(map[string]interface{}, *registry.Cache) (bleveanalysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

// codeTokenizer keeps byte offsets so highlighting and phrases line up with
// the original text.
type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) bleveanalysis.TokenStream {
	var stream bleveanalysis.TokenStream
	pos := 1
	for _, loc := range tokenRegex.FindAllIndex(input, -1) {
		word := string(input[loc[0]:loc[1]])
		offset := loc[0]
		for _, part := range splitIdentifier(word) {
			start := offset + strings.Index(word[offset-loc[0]:], part)
			end := start + len(part)
			offset = end
			if len(part) < 2 {
				continue
			}
			stream = append(stream, &bleveanalysis.Token{
				Term:     []byte(part),
				Start:    start,
				End:      end,
				Position: pos,
				Type:     bleveanalysis.AlphaNumeric,
			})
			pos++
		}
	}
	return stream
}

// splitIdentifier splits snake_case first, then camelCase within each part.
func splitIdentifier(word string) []string {
	var out []string
	for _, part := range strings.Split(word, "_") {
		if part != "" {
			out = append(out, splitCamelCase(part)...)
		}
	}
	return out
}

// splitCamelCase splits camelCase and PascalCase identifiers.
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
func splitCamelCase(s string) []string {
	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevIsLower || nextIsLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// stopFilter drops tokens found in a case-folded word set.
type stopFilter struct {
	words map[string]struct{}
}

func newStopFilter(words []string) *stopFilter {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return &stopFilter{words: m}
}

func (f *stopFilter) Filter(input bleveanalysis.TokenStream) bleveanalysis.TokenStream {
	out := make(bleveanalysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, stop := f.words[strings.ToLower(string(tok.Term))]; !stop {
			out = append(out, tok)
		}
	}
	return out
}
