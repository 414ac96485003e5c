package index

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
	"golang.org/x/text/width"
)

// GujiTokenizerName is the bleve registry name of the classical-text tokenizer.
const GujiTokenizerName = "guji_tokenizer"

func init() {
	_ = registry.RegisterTokenizer(GujiTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return gujiTokenizer{}, nil
	})
}

// Token is one normalized term of a text. Start and End are byte offsets
// into the original text; Pos counts tokens from 1.
type Token struct {
	Term  string
	Pos   int
	Start int
	End   int
}

// foldRune applies width folding and lower-casing.
func foldRune(r rune) rune {
	if f := width.LookupRune(r).Folded(); f != 0 {
		r = f
	}
	return unicode.ToLower(r)
}

// isIdeograph reports runes that form a token on their own.
func isIdeograph(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Tokenize splits text the same way at index and query time: every
// ideograph is a token, runs of other letters and digits form one token,
// and everything else separates tokens. Full-width forms fold to their
// narrow equivalents and letters are lower-cased.
func Tokenize(text string) []Token {
	var (
		tokens []Token
		word   []rune
		start  = -1
	)

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, Token{Term: string(word), Pos: len(tokens) + 1, Start: start, End: end})
			word = word[:0]
			start = -1
		}
	}

	for i, r := range text {
		f := foldRune(r)
		switch {
		case isIdeograph(f):
			flush(i)
			tokens = append(tokens, Token{
				Term:  string(f),
				Pos:   len(tokens) + 1,
				Start: i,
				End:   i + utf8.RuneLen(r),
			})
		case isWordRune(f):
			if start < 0 {
				start = i
			}
			word = append(word, f)
		default:
			flush(i)
		}
	}
	flush(len(text))
	return tokens
}

// Terms returns the distinct terms of text in first-occurrence order.
func Terms(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range Tokenize(text) {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		out = append(out, tok.Term)
	}
	return out
}

// Sequence returns the terms of text in order, duplicates included.
func Sequence(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Term
	}
	return out
}

type gujiTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (gujiTokenizer) Tokenize(input []byte) analysis.TokenStream {
	tokens := Tokenize(string(input))
	stream := make(analysis.TokenStream, 0, len(tokens))
	for _, tok := range tokens {
		typ := analysis.AlphaNumeric
		if r, _ := utf8.DecodeRuneInString(tok.Term); isIdeograph(r) {
			typ = analysis.Ideographic
		}
		stream = append(stream, &analysis.Token{
			Term:     []byte(tok.Term),
			Start:    tok.Start,
			End:      tok.End,
			Position: tok.Pos,
			Type:     typ,
		})
	}
	return stream
}
