package analysis

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Sankatt/cruisegrader/internal/requirement"
	"github.com/Sankatt/cruisegrader/internal/schema"
)

//go:embed patterns.yaml
var patternsYAML []byte

// regexPrefix marks a pattern-table entry as a regular expression instead of
// a normalized substring.
const regexPrefix = "regex:"

// Category weights for confidence scoring. Assertion, exception, and
// boundary matches are strong signals; a bare method call is weak and a
// keyword alone proves nothing.
const (
	weightCritical   = 2.0
	weightMethodCall = 1.0
	weightKeyword    = 0.5
)

const (
	categoryMethodCalls = "method_calls"
	categoryAssertions  = "assertion_patterns"
	categoryExceptions  = "exception_patterns"
	categoryBoundary    = "boundary_or_restriction"
	categoryKeywords    = "keywords"
)

// patternTable maps requirement id -> category -> pattern list.
type patternTable map[requirement.ID]map[string][]string

var (
	patterns     patternTable
	patternsOnce sync.Once
	patternsErr  error
)

// loadPatterns decodes and validates the embedded pattern tables once.
func loadPatterns() (patternTable, error) {
	patternsOnce.Do(func() {
		var doc any
		if err := yaml.Unmarshal(patternsYAML, &doc); err != nil {
			patternsErr = fmt.Errorf("decode pattern tables: %w", err)
			return
		}
		if err := schema.ValidatePatterns(doc); err != nil {
			patternsErr = err
			return
		}
		if err := yaml.Unmarshal(patternsYAML, &patterns); err != nil {
			patternsErr = fmt.Errorf("decode pattern tables: %w", err)
		}
	})
	return patterns, patternsErr
}

// matchPattern reports whether any pattern in the list matches the body.
// regex: entries run case-insensitively over the raw body (they may target
// comments, which normalization strips); plain entries are substring-matched
// in canonical search form.
func matchPattern(list []string, body string) (bool, string) {
	folded := FoldAccents(body)
	canonical := searchForm(body)

	for _, pattern := range list {
		if strings.HasPrefix(pattern, regexPrefix) {
			expr := strings.TrimPrefix(pattern, regexPrefix)
			re, err := regexp.Compile("(?is)" + expr)
			if err != nil {
				continue
			}
			if re.MatchString(folded) {
				return true, pattern
			}
			continue
		}
		if strings.Contains(canonical, strings.ToLower(FoldAccents(pattern))) {
			return true, pattern
		}
	}
	return false, ""
}

// categoryWeight returns the confidence contribution of a matched category.
func categoryWeight(category string) float64 {
	switch category {
	case categoryAssertions, categoryExceptions, categoryBoundary:
		return weightCritical
	case categoryMethodCalls:
		return weightMethodCall
	case categoryKeywords:
		return weightKeyword
	}
	return 0
}
