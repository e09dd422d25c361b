// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AutoJunjie/async-paper-retriever/internal/backend"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// Sentinels used when a backend record carries no usable metadata.
const (
	unknownAuthor  = "Unknown"
	unknownJournal = "Unknown Journal"

	// fallbackYear is used when no publication year can be derived.
	fallbackYear = 2023
)

// Relevance thresholds for synthesized reasoning and the relevant-result
// count.
const (
	highRelevance     = 0.8
	moderateRelevance = 0.6
)

// authorPattern matches a capitalized name-like token, optionally hyphenated
// (e.g. "Smith", "Garcia-Lopez").
var authorPattern = regexp.MustCompile(`^[A-Z][a-z]+(?:-[A-Z][a-z]+)?$`)

// yearPattern matches a plausible publication year in free text.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// knownJournals maps case-insensitive substrings of a record's source to a
// canonical publication name.
var knownJournals = []struct {
	substr  string
	display string
}{
	{"nature", "Nature"},
	{"science", "Science"},
	{"cell", "Cell"},
	{"lancet", "The Lancet"},
	{"nejm", "New England Journal of Medicine"},
	{"new england", "New England Journal of Medicine"},
	{"jama", "JAMA"},
	{"bmj", "BMJ"},
	{"plos", "PLOS ONE"},
	{"ieee", "IEEE"},
	{"arxiv", "arXiv"},
	{"pubmed", "PubMed"},
}

// ConvertRecords maps raw backend records to Result entities. The mapping is
// pure: field derivation only looks at the record and the task keyword, so it
// can be tested without I/O. Result ids are 1-based positions.
func ConvertRecords(keyword string, records []backend.ResultRecord) []types.Result {
	results := make([]types.Result, 0, len(records))
	for i, rec := range records {
		results = append(results, types.Result{
			ID:             i + 1,
			Title:          rec.Title,
			Authors:        deriveAuthors(keyword),
			Journal:        deriveJournal(rec.Source),
			Year:           deriveYear(rec.Title),
			RelevanceScore: rec.Score,
			Abstract:       rec.Abstract,
			AIReasoning:    deriveReasoning(rec),
		})
	}
	return results
}

// CountRelevant returns how many records clear the moderate relevance
// threshold.
func CountRelevant(records []backend.ResultRecord) int {
	n := 0
	for _, rec := range records {
		if rec.Score >= moderateRelevance {
			n++
		}
	}
	return n
}

// deriveAuthors extracts author-like tokens from the task keyword. A search
// such as "Smith insulin therapy" yields ["Smith"]. Without any match the
// sentinel author is returned.
func deriveAuthors(keyword string) []string {
	var authors []string
	for _, token := range strings.Fields(keyword) {
		if authorPattern.MatchString(token) {
			authors = append(authors, token)
		}
	}
	if len(authors) == 0 {
		return []string{unknownAuthor}
	}
	return authors
}

// deriveJournal maps a record source to a known publication by
// case-insensitive substring match, falling back to the raw source, then to
// the sentinel.
func deriveJournal(source string) string {
	lower := strings.ToLower(source)
	for _, j := range knownJournals {
		if strings.Contains(lower, j.substr) {
			return j.display
		}
	}
	if source != "" {
		return source
	}
	return unknownJournal
}

// deriveYear extracts a 4-digit 19xx/20xx year from the title, defaulting to
// fallbackYear.
func deriveYear(title string) int {
	match := yearPattern.FindString(title)
	if match == "" {
		return fallbackYear
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return fallbackYear
	}
	return year
}

// deriveReasoning prefers the backend's relevance rationale and otherwise
// synthesizes one from the numeric score.
func deriveReasoning(rec backend.ResultRecord) string {
	if rec.RelevanceReason != "" {
		return rec.RelevanceReason
	}
	switch {
	case rec.Score >= highRelevance:
		return fmt.Sprintf("High relevance: strong match to the query (score %.2f)", rec.Score)
	case rec.Score >= moderateRelevance:
		return fmt.Sprintf("Moderate relevance: partial match to the query (score %.2f)", rec.Score)
	default:
		return fmt.Sprintf("Low relevance: weak match to the query (score %.2f)", rec.Score)
	}
}
