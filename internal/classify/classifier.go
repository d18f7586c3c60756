// Package classify assigns catalog texts to equipment-domain categories and
// scores the compatibility between a query's category and a listing's.
package classify

import (
	"regexp"
	"strings"

	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/index"
)

// Matched-category confidences. Unmatched texts fall back to unknown.
const (
	supportConfidence = 0.90
	coreConfidence    = 0.95
	periphConfidence  = 0.90
	motorConfidence   = 0.85
	unknownConfidence = 0.30
)

// Support keywords are checked before core keywords: a phrase like
// "disco para enceradeira" names a part, even though it contains the
// machine name.
var supportKeywords = []string{
	"disco", "escova", "suporte de disco", "filtro", "saco coletor",
	"mangueira", "bocal", "bico", "rodo para", "correia", "flange",
	"reservatorio", "tampa", "roda para", "cabo para",
}

var coreKeywords = []string{
	"aspirador", "enceradeira", "lavadora", "extratora", "varredeira",
	"soprador", "politriz", "cortador de grama", "rocadeira",
	"lavadora de alta pressao", "mop eletrico",
}

var peripheralKeywords = []string{
	"detergente", "removedor", "cera", "sinalizador", "cone", "placa",
	"luva", "pano", "fibra", "mop agua", "balde", "carrinho", "dispenser",
	"papel toalha",
}

// motorPatterns catch standalone replacement motors: "motor" qualified by
// power, phase, or brand, or leading the text outright.
var motorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bmotor\b.*\b\d+([.,]\d+)?\s*(hp|cv)\b`),
	regexp.MustCompile(`\bmotor\b.*\b(trifasico|monofasico)\b`),
	regexp.MustCompile(`\bmotor\b\s+(weg|kercher|wap|electrolux)\b`),
	regexp.MustCompile(`^motor\b`),
}

// Classifier is the rule-based domain classifier. Construct one instance at
// startup and share it; classification is pure and safe for concurrent use.
type Classifier struct{}

// New creates a classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify assigns a category to the text. Matching order is significant:
// support before core before peripheral, with the standalone-motor heuristic
// last, and only when nothing else matched.
func (c *Classifier) Classify(text string) domain.Classification {
	norm := index.Normalize(text)

	if matchesAny(norm, supportKeywords) {
		return domain.Classification{Category: domain.CategorySupport, Confidence: supportConfidence}
	}
	if matchesAny(norm, coreKeywords) {
		return domain.Classification{Category: domain.CategoryCore, Confidence: coreConfidence}
	}
	if matchesAny(norm, peripheralKeywords) {
		return domain.Classification{Category: domain.CategoryPeripheral, Confidence: periphConfidence}
	}
	if strings.Contains(norm, "motor") {
		for _, p := range motorPatterns {
			if p.MatchString(norm) {
				// A standalone replacement motor is a part, not a machine.
				return domain.Classification{Category: domain.CategorySupport, Confidence: motorConfidence}
			}
		}
	}

	return domain.Classification{Category: domain.CategoryUnknown, Confidence: unknownConfidence}
}

func matchesAny(norm string, keywords []string) bool {
	for _, kw := range keywords {
		if containsWord(norm, kw) {
			return true
		}
	}
	return false
}

// containsWord matches kw against norm on word boundaries, so "cone" does
// not fire inside "conector".
func containsWord(norm, kw string) bool {
	idx := 0
	for {
		i := strings.Index(norm[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		startOK := start == 0 || norm[start-1] == ' '
		endOK := end == len(norm) || norm[end] == ' '
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}
