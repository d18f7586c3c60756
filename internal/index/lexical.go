// Package index implements the in-memory lexical retrieval index: tf-idf
// vector spaces over character and word n-grams plus anchor-token overlap.
// The index is built once at startup and is safe for unlimited concurrent
// readers; picking up corpus changes requires building a fresh index and
// swapping the pointer.
package index

import (
	"math"
	"sort"
	"strings"

	"github.com/polimaq/rankcore/internal/domain"
)

// Blend weights over (char cosine, word cosine, anchor overlap).
// Single-token queries lean harder on character grams because there is
// little word-level signal to work with.
var (
	singleTokenWeights = [3]float64{0.75, 0.15, 0.10}
	multiTokenWeights  = [3]float64{0.60, 0.25, 0.15}
)

const (
	maxAnchors = 5
	// anchorTerm is always promoted to the front of the anchor list when
	// present: floor-machine queries are the catalog's most ambiguous
	// traffic and the token must not be crowded out by rarer ones.
	anchorTerm = "enceradeira"

	anchorPenalty    = 0.8  // applied when a document contains no anchor token
	headTokenPenalty = 0.9  // applied when a document misses the head query token
	singleHeadFactor = 0.25 // softens the head penalty for single-token queries
)

// Hit is one scored document from the lexical index.
type Hit struct {
	Doc   domain.Document
	Pos   int // insertion position, used for deterministic tie-breaks
	Score float64
}

type docEntry struct {
	doc      domain.Document
	tokens   map[string]struct{}
	charVec  map[string]float64 // L2-normalized tf-idf
	wordVec  map[string]float64
	rawToken []string
}

// Index is the immutable lexical retrieval structure.
type Index struct {
	entries  []docEntry
	charIDF  map[string]float64
	wordIDF  map[string]float64
	tokenIDF map[string]float64 // unigram idf, drives anchor selection
}

// Build constructs the index from the full corpus. An empty corpus fails
// with domain.ErrEmptyCorpus; startup must not proceed without an index.
func Build(docs []domain.Document) (*Index, error) {
	if len(docs) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	n := len(docs)
	charDF := make(map[string]int)
	wordDF := make(map[string]int)
	tokenDF := make(map[string]int)

	type rawDoc struct {
		tokens []string
		charTF map[string]int
		wordTF map[string]int
	}
	raw := make([]rawDoc, n)

	for i, d := range docs {
		tokens := Tokenize(d.Text)
		charTF := termFreq(charNgrams(tokens))
		wordTF := termFreq(wordNgrams(tokens))
		raw[i] = rawDoc{tokens: tokens, charTF: charTF, wordTF: wordTF}

		for g := range charTF {
			charDF[g]++
		}
		for g := range wordTF {
			wordDF[g]++
		}
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tokenDF[t]++
			}
		}
	}

	ix := &Index{
		entries:  make([]docEntry, n),
		charIDF:  smoothedIDF(charDF, n),
		wordIDF:  smoothedIDF(wordDF, n),
		tokenIDF: smoothedIDF(tokenDF, n),
	}

	for i, d := range docs {
		tokens := make(map[string]struct{}, len(raw[i].tokens))
		for _, t := range raw[i].tokens {
			tokens[t] = struct{}{}
		}
		ix.entries[i] = docEntry{
			doc:      d,
			tokens:   tokens,
			charVec:  normalizedVec(raw[i].charTF, ix.charIDF),
			wordVec:  normalizedVec(raw[i].wordTF, ix.wordIDF),
			rawToken: raw[i].tokens,
		}
	}

	return ix, nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.entries) }

// Documents returns the indexed documents in insertion order.
func (ix *Index) Documents() []domain.Document {
	docs := make([]domain.Document, len(ix.entries))
	for i, e := range ix.entries {
		docs[i] = e.doc
	}
	return docs
}

// Search scores the query against every document and returns the top-K hits
// by blended score, ties broken by insertion order. An empty query after
// normalization yields no hits, never an error.
func (ix *Index) Search(query string, topK int) []Hit {
	qTokens := Tokenize(query)
	if len(qTokens) == 0 || topK <= 0 {
		return nil
	}

	qChar := normalizedVec(termFreq(charNgrams(qTokens)), ix.charIDF)
	qWord := normalizedVec(termFreq(wordNgrams(qTokens)), ix.wordIDF)

	anchors, anchorTotal := ix.selectAnchors(qTokens)
	single := len(qTokens) == 1
	weights := multiTokenWeights
	if single {
		weights = singleTokenWeights
	}
	head := headToken(qTokens)

	hits := make([]Hit, 0, len(ix.entries))
	for i := range ix.entries {
		e := &ix.entries[i]

		score := weights[0]*dot(qChar, e.charVec) +
			weights[1]*dot(qWord, e.wordVec) +
			weights[2]*overlapScore(anchors, anchorTotal, e.tokens)

		if single {
			if !containsAffix(e.rawToken, head) {
				score *= 1 - headTokenPenalty*singleHeadFactor
			}
		} else {
			if anchorTotal > 0 && !containsAnyAnchor(anchors, e.tokens) {
				score *= 1 - anchorPenalty
			}
			if _, ok := e.tokens[head]; !ok {
				score *= 1 - headTokenPenalty
			}
		}

		if score > 0 {
			hits = append(hits, Hit{Doc: e.doc, Pos: i, Score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Pos < hits[b].Pos
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

type anchor struct {
	token  string
	weight float64
}

// selectAnchors picks up to maxAnchors query tokens of length >= 3, ranked
// by descending idf, with anchorTerm promoted to the front when present.
// Each anchor is weighted by its idf; the second return value is the total
// anchor weight (zero means no usable anchors).
func (ix *Index) selectAnchors(qTokens []string) ([]anchor, float64) {
	seen := make(map[string]struct{}, len(qTokens))
	var candidates []anchor
	for _, t := range qTokens {
		if len([]rune(t)) < 3 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		idf, ok := ix.tokenIDF[t]
		if !ok {
			idf = math.Log(float64(ix.Len()+1)) + 1 // unseen token, maximally rare
		}
		candidates = append(candidates, anchor{token: t, weight: idf})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].token == anchorTerm {
			return true
		}
		if candidates[j].token == anchorTerm {
			return false
		}
		return candidates[i].weight > candidates[j].weight
	})

	if len(candidates) > maxAnchors {
		candidates = candidates[:maxAnchors]
	}

	var total float64
	for _, a := range candidates {
		total += a.weight
	}
	return candidates, total
}

// overlapScore sums the weights of anchors present in the document token
// set, normalized by the total anchor weight.
func overlapScore(anchors []anchor, total float64, docTokens map[string]struct{}) float64 {
	if total <= 0 {
		return 0
	}
	var sum float64
	for _, a := range anchors {
		if _, ok := docTokens[a.token]; ok {
			sum += a.weight
		}
	}
	return sum / total
}

func containsAnyAnchor(anchors []anchor, docTokens map[string]struct{}) bool {
	for _, a := range anchors {
		if _, ok := docTokens[a.token]; ok {
			return true
		}
	}
	return false
}

// headToken returns the first query token of length >= 3, falling back to
// the first token.
func headToken(qTokens []string) string {
	for _, t := range qTokens {
		if len([]rune(t)) >= 3 {
			return t
		}
	}
	return qTokens[0]
}

// containsAffix reports whether any document token has q as a prefix or
// substring. Single-token queries use this relaxed head check.
func containsAffix(docTokens []string, q string) bool {
	for _, t := range docTokens {
		if strings.Contains(t, q) {
			return true
		}
	}
	return false
}

// smoothedIDF computes idf(t) = ln((N+1)/(df+1)) + 1.
func smoothedIDF(df map[string]int, n int) map[string]float64 {
	idf := make(map[string]float64, len(df))
	for t, d := range df {
		idf[t] = math.Log(float64(n+1)/float64(d+1)) + 1
	}
	return idf
}

// normalizedVec builds an L2-normalized tf-idf vector. Grams absent from
// the idf table are dropped, not zeroed.
func normalizedVec(tf map[string]int, idf map[string]float64) map[string]float64 {
	vec := make(map[string]float64, len(tf))
	var norm2 float64
	for g, f := range tf {
		w, ok := idf[g]
		if !ok {
			continue
		}
		v := float64(f) * w
		vec[g] = v
		norm2 += v * v
	}
	if norm2 == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(norm2)
	for g := range vec {
		vec[g] *= inv
	}
	return vec
}

// dot computes the sparse dot product, iterating the smaller vector.
func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for g, v := range a {
		if w, ok := b[g]; ok {
			sum += v * w
		}
	}
	return sum
}
