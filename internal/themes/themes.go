// Package themes extracts the most frequent terms of a text.
//
// Text is analysed with bleve's cjk analyzer: widths are folded, Latin
// script is lower-cased and split into words, and runs of Han characters
// become overlapping bigrams. Single-rune tokens and common function words
// are ignored.
package themes

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/registry"

	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
)

// DefaultMaxThemes is used when a caller does not choose a limit.
const DefaultMaxThemes = 10

// minRunes is the shortest token counted as a theme.
const minRunes = 2

// Theme is a term and the number of times it occurs.
type Theme struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// stopwords are excluded from themes.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the and of to in is it that for with as was on be by this are not or
		from at an but his her their they he she we you its which have had has
		were been will would can could all no so if than then there into
		之所 所以 不可 而不 也者 者也 于是 是以 然则 然后 何以 以为 不能 而后
		之人 其所 是故 故曰 何也 者乎 也夫 矣夫 曰子 子曰 之以 以其 其不 而已
	`) {
		stopwords[w] = struct{}{}
	}
}

// Analyzer counts themes. It holds no per-call state and is safe for
// concurrent use.
type Analyzer struct {
	analyzer analysis.Analyzer
}

// New builds an Analyzer backed by a private bleve analysis cache.
func New() (*Analyzer, error) {
	a, err := registry.NewCache().AnalyzerNamed(cjk.AnalyzerName)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInternal, fmt.Errorf("load %s analyzer: %w", cjk.AnalyzerName, err))
	}
	return &Analyzer{analyzer: a}, nil
}

type tally struct {
	count int
	first int
}

// Analyze returns at most maxThemes themes of content ordered by count
// descending, ties by first occurrence. Empty content yields an empty list.
func (a *Analyzer) Analyze(content string, maxThemes int) ([]Theme, error) {
	if maxThemes < 1 {
		return nil, gerrors.InvalidArgument("maxThemes", fmt.Sprintf("must be at least 1, got %d", maxThemes))
	}
	if strings.TrimSpace(content) == "" {
		return []Theme{}, nil
	}

	counts := make(map[string]*tally)
	for i, tok := range a.analyzer.Analyze([]byte(content)) {
		if utf8.RuneCount(tok.Term) < minRunes {
			continue
		}
		word := string(tok.Term)
		if _, stop := stopwords[word]; stop {
			continue
		}
		if t, ok := counts[word]; ok {
			t.count++
			continue
		}
		counts[word] = &tally{count: 1, first: i}
	}

	themes := make([]Theme, 0, len(counts))
	for w := range counts {
		themes = append(themes, Theme{Word: w, Count: counts[w].count})
	}
	sort.Slice(themes, func(i, j int) bool {
		a, b := counts[themes[i].Word], counts[themes[j].Word]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first < b.first
	})
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	return themes, nil
}
