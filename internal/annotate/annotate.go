// Package annotate assigns each cluster a search intent and a brand-fit
// ratio.
package annotate

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/keyword-cli/internal/model"
)

// RE2's \b only knows ASCII word characters, so cue boundaries are spelled
// out with Unicode classes: "ébuy" is one word, not a "buy" cue.
const (
	wordChar    = `[\p{L}\p{N}_]`
	nonWordChar = `[^\p{L}\p{N}_]`
)

var (
	transactionalRx = cueRegexp(`buy|price|pricing|download|license|trial`)
	informationalRx = cueRegexp(`how to|guide|tutorial|what is|examples?`)

	// "vs" and "vs." end in a space, so the cue must be followed by a word.
	commercialRx = regexp.MustCompile(`(?:^|` + nonWordChar + `)(?:(?:best|top|tools?|software|alternatives?|compare)(?:` +
		nonWordChar + `|$)|vs\.? ` + wordChar + `)`)
)

// cueRegexp matches any of the alternatives as whole words.
func cueRegexp(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|` + nonWordChar + `)(?:` + alternatives + `)(?:` + nonWordChar + `|$)`)
}

var navigationalTerms = []string{"docs", "reference", "api", "login", "account"}

// Annotator classifies clusters for one brand and product.
type Annotator struct {
	product      string
	navigational *regexp.Regexp
}

// New builds an Annotator. The brand and product names join the
// navigational cues.
func New(brand, product string) *Annotator {
	terms := make([]string, 0, len(navigationalTerms)+2)
	for _, name := range []string{brand, product} {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			terms = append(terms, regexp.QuoteMeta(name))
		}
	}
	terms = append(terms, navigationalTerms...)
	return &Annotator{
		product:      strings.ToLower(strings.TrimSpace(product)),
		navigational: cueRegexp(strings.Join(terms, "|")),
	}
}

// Intent classifies a corpus. Cue classes are checked in a fixed order:
// transactional, commercial, navigational, informational. The first class
// with a match wins; no match is informational.
func (a *Annotator) Intent(corpus string) model.Intent {
	switch {
	case transactionalRx.MatchString(corpus):
		return model.IntentTransactional
	case commercialRx.MatchString(corpus):
		return model.IntentCommercial
	case a.navigational.MatchString(corpus):
		return model.IntentNavigational
	case informationalRx.MatchString(corpus):
		return model.IntentInformational
	default:
		return model.IntentInformational
	}
}

// BrandFit is the share of members whose keyword contains the product name.
func (a *Annotator) BrandFit(members []model.KeywordRecord) float64 {
	hits := 0
	for _, m := range members {
		if strings.Contains(m.Keyword, a.product) {
			hits++
		}
	}
	return float64(hits) / float64(max(1, len(members)))
}

// Annotate returns copies of clusters with intent and brand fit set.
// Membership is unchanged.
func (a *Annotator) Annotate(clusters []model.Cluster) []model.Cluster {
	out := make([]model.Cluster, len(clusters))
	counts := make(map[model.Intent]int)
	for i, c := range clusters {
		corpus := strings.Join(c.Keywords(0), " ")
		c.Metrics.Intent = a.Intent(corpus)
		c.Metrics.BrandFit = a.BrandFit(c.Members)
		counts[c.Metrics.Intent]++
		out[i] = c
	}

	zap.L().Info("annotate: classified clusters",
		zap.Int("clusters", len(out)),
		zap.Int("transactional", counts[model.IntentTransactional]),
		zap.Int("commercial", counts[model.IntentCommercial]),
		zap.Int("navigational", counts[model.IntentNavigational]),
		zap.Int("informational", counts[model.IntentInformational]),
	)
	return out
}
