package index

import (
	"math"
	"sort"
)

// Scoring weights. Title tiers exceed the saturated body score, so any
// chapter whose book or chapter title contains every query term outranks
// every body-only match.
const (
	BookTitleWeight    = 2.0
	ChapterTitleWeight = 1.0
	ProximityWeight    = 1.0
)

// Occurrence is one position of a term in a text.
type Occurrence struct {
	Pos   int
	Start int
	End   int
}

// Postings maps a term to its occurrences ordered by position.
type Postings map[string][]Occurrence

// PostingsOf collects the postings of the given terms in tokens.
func PostingsOf(tokens []Token, terms []string) Postings {
	want := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		want[t] = struct{}{}
	}
	p := make(Postings, len(terms))
	for _, tok := range tokens {
		if _, ok := want[tok.Term]; ok {
			p[tok.Term] = append(p[tok.Term], Occurrence{Pos: tok.Pos, Start: tok.Start, End: tok.End})
		}
	}
	return p
}

// Coverage returns how many of terms have at least one occurrence.
func (p Postings) Coverage(terms []string) int {
	n := 0
	for _, t := range terms {
		if len(p[t]) > 0 {
			n++
		}
	}
	return n
}

// MinSpan finds the smallest token window containing every term. It returns
// the window length in tokens and the first and last occurrences bounding
// it; ok is false when some term is missing.
func (p Postings) MinSpan(terms []string) (span int, first, last Occurrence, ok bool) {
	type hit struct {
		occ  Occurrence
		term int
	}
	var hits []hit
	for i, t := range terms {
		occs := p[t]
		if len(occs) == 0 {
			return 0, Occurrence{}, Occurrence{}, false
		}
		for _, o := range occs {
			hits = append(hits, hit{occ: o, term: i})
		}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].occ.Pos < hits[b].occ.Pos })

	counts := make([]int, len(terms))
	covered := 0
	best := math.MaxInt
	lo := 0
	for hi := range hits {
		if counts[hits[hi].term] == 0 {
			covered++
		}
		counts[hits[hi].term]++

		for covered == len(terms) {
			if s := hits[hi].occ.Pos - hits[lo].occ.Pos + 1; s < best {
				best = s
				first, last = hits[lo].occ, hits[hi].occ
			}
			counts[hits[lo].term]--
			if counts[hits[lo].term] == 0 {
				covered--
			}
			lo++
		}
	}
	return best, first, last, true
}

// Signals are the per-chapter relevance inputs.
type Signals struct {
	// TermFreqs holds the body frequency of each distinct query term.
	TermFreqs []int
	// Span is the MinSpan of the body, 0 when not every term is present.
	Span int
	// BookTitle and ChapterTitle are set when every term appears in the title.
	BookTitle    bool
	ChapterTitle bool
}

// Body returns the saturated body score in [0, 1).
//
//	raw  = coverage × (Σ (1 + ln tf) + ProximityWeight × |Q| / span)
//	body = raw / (raw + 1)
func (s Signals) Body() float64 {
	if len(s.TermFreqs) == 0 {
		return 0
	}
	present := 0
	var tf float64
	for _, f := range s.TermFreqs {
		if f > 0 {
			present++
			tf += 1 + math.Log(float64(f))
		}
	}
	if present == 0 {
		return 0
	}
	raw := tf
	if s.Span > 0 {
		raw += ProximityWeight * float64(len(s.TermFreqs)) / float64(s.Span)
	}
	raw *= float64(present) / float64(len(s.TermFreqs))
	return raw / (raw + 1)
}

// Score combines the body score with the title tiers. It is not normalized.
func (s Signals) Score() float64 {
	score := s.Body()
	if s.BookTitle {
		score += BookTitleWeight
	}
	if s.ChapterTitle {
		score += ChapterTitleWeight
	}
	return score
}

// SignalsOf derives Signals from body postings and title coverage.
func SignalsOf(body Postings, terms []string, bookTitle, chapterTitle bool) Signals {
	s := Signals{
		TermFreqs:    make([]int, len(terms)),
		BookTitle:    bookTitle,
		ChapterTitle: chapterTitle,
	}
	for i, t := range terms {
		s.TermFreqs[i] = len(body[t])
	}
	if span, _, _, ok := body.MinSpan(terms); ok {
		s.Span = span
	}
	return s
}

// ContainsAll reports whether text contains every term.
func ContainsAll(text string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		have[tok.Term] = struct{}{}
	}
	for _, t := range terms {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}
