package services

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/camden-git/peoplegraph/models"
	"golang.org/x/sync/errgroup"
)

// Confidence is a coarse bucket summarizing a duplicate score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	}
	return 0
}

const (
	verySimilarNameThreshold     = 0.9
	somewhatSimilarNameThreshold = 0.7
)

// DuplicateSuggestion is one candidate pair produced by a duplicate scan
type DuplicateSuggestion struct {
	PersonAID   string     `json:"person_a_id"`
	PersonAName string     `json:"person_a_name"`
	PersonBID   string     `json:"person_b_id"`
	PersonBName string     `json:"person_b_name"`
	Score       int        `json:"score"`
	Confidence  Confidence `json:"confidence"`
	Reasons     []string   `json:"reasons"`
}

// ConfidenceFor buckets a score.
func ConfidenceFor(score int) Confidence {
	switch {
	case score >= 5:
		return ConfidenceHigh
	case score >= 3:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// NameSimilarity is 1 - levenshtein/maxLen over the lowercased names.
// Two empty names are identical.
func NameSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

// levenshteinDistance computes the edit distance between two rune slices.
func levenshteinDistance(s1, s2 []rune) int {
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// Score computes a duplicate-confidence score for two people. It is
// symmetric in its arguments and never fails on missing fields.
func Score(a, b models.Person) (int, []string) {
	score := 0
	var reasons []string

	sim := NameSimilarity(a.Name, b.Name)
	switch {
	case sim > verySimilarNameThreshold:
		score += 3
		reasons = append(reasons, "Very similar names")
	case sim > somewhatSimilarNameThreshold:
		score += 2
		reasons = append(reasons, "Somewhat similar names")
	}

	if a.Company != "" && b.Company != "" && strings.EqualFold(a.Company, b.Company) {
		score += 2
		reasons = append(reasons, "Same company")
	}

	if shared := sharedRosters(a.SourceImageIDs, b.SourceImageIDs); shared > 0 {
		score += shared
		if shared == 1 {
			reasons = append(reasons, "Appear in 1 shared photo")
		} else {
			reasons = append(reasons, fmt.Sprintf("Appear in %d shared photos", shared))
		}
	}

	if a.Birthday != "" && b.Birthday != "" && a.Birthday == b.Birthday {
		score += 2
		reasons = append(reasons, "Same birthday")
	}

	return score, reasons
}

// sharedRosters counts distinct ids present in both lists
func sharedRosters(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inA := make(map[string]struct{}, len(a))
	for _, id := range a {
		inA[id] = struct{}{}
	}
	shared := 0
	for _, id := range b {
		if _, ok := inA[id]; ok {
			shared++
			delete(inA, id)
		}
	}
	return shared
}

// ScorePairs scores every unordered same-owner pair of persons and returns
// the pairs with a positive score, most confident first. The work is O(n²);
// callers bound the candidate set.
func ScorePairs(ctx context.Context, persons []models.Person) ([]DuplicateSuggestion, error) {
	rows := make([][]DuplicateSuggestion, len(persons))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range persons {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := persons[i]
			for j := i + 1; j < len(persons); j++ {
				b := persons[j]
				if a.OwnerID != b.OwnerID || a.ID == b.ID {
					continue
				}
				score, reasons := Score(a, b)
				if score == 0 {
					continue
				}
				rows[i] = append(rows[i], DuplicateSuggestion{
					PersonAID:   a.ID,
					PersonAName: a.Name,
					PersonBID:   b.ID,
					PersonBName: b.Name,
					Score:       score,
					Confidence:  ConfidenceFor(score),
					Reasons:     reasons,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var suggestions []DuplicateSuggestion
	for _, row := range rows {
		suggestions = append(suggestions, row...)
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		ci, cj := suggestions[i].Confidence.rank(), suggestions[j].Confidence.rank()
		if ci != cj {
			return ci > cj
		}
		return suggestions[i].Score > suggestions[j].Score
	})
	return suggestions, nil
}
