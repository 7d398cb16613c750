package cluster

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Tokens are runs of two or more letters, digits or underscores.
var tokenRx = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vector is a sparse row. Idx is ascending.
type Vector struct {
	Idx []int
	Val []float64
}

// Dot returns the inner product with a dense vector.
func (v Vector) Dot(dense []float64) float64 {
	var s float64
	for i, j := range v.Idx {
		s += v.Val[i] * dense[j]
	}
	return s
}

// SqNorm returns the squared Euclidean norm.
func (v Vector) SqNorm() float64 {
	var s float64
	for _, x := range v.Val {
		s += x * x
	}
	return s
}

// AddTo accumulates scale*v into dense.
func (v Vector) AddTo(dense []float64, scale float64) {
	for i, j := range v.Idx {
		dense[j] += scale * v.Val[i]
	}
}

// Matrix is a TF-IDF document-term matrix.
type Matrix struct {
	Vocab []string // sorted
	Rows  []Vector
}

// Tokenize splits text into unigram tokens.
func Tokenize(s string) []string {
	return tokenRx.FindAllString(strings.ToLower(s), -1)
}

// Terms returns the unigrams and bigrams of a document, in order.
func Terms(s string) []string {
	tokens := Tokenize(s)
	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// Vectorize builds L2-normalized TF-IDF rows over unigrams and bigrams,
// keeping only terms that occur in at least minDF documents. IDF is
// smoothed: ln((1+n)/(1+df)) + 1. Documents with no surviving terms get an
// empty row.
func Vectorize(docs []string, minDF int) *Matrix {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, d := range docs {
		c := make(map[string]int)
		for _, t := range Terms(d) {
			c[t]++
		}
		for t := range c {
			df[t]++
		}
		counts[i] = c
	}

	vocab := make([]string, 0, len(df))
	for t, n := range df {
		if n >= minDF {
			vocab = append(vocab, t)
		}
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	n := float64(len(docs))
	for i, t := range vocab {
		index[t] = i
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	m := &Matrix{Vocab: vocab, Rows: make([]Vector, len(docs))}
	for i, c := range counts {
		var row Vector
		for t := range c {
			j, ok := index[t]
			if !ok {
				continue
			}
			row.Idx = append(row.Idx, j)
		}
		sort.Ints(row.Idx)
		row.Val = make([]float64, len(row.Idx))
		var norm float64
		for k, j := range row.Idx {
			w := float64(c[vocab[j]]) * idf[j]
			row.Val[k] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range row.Val {
				row.Val[k] /= norm
			}
		}
		m.Rows[i] = row
	}
	return m
}
