package service

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/recruitmetrics/internal/database/repository"
)

// DefaultMaxNameDistance is the largest edit distance between candidate names
// still reported as a possible duplicate.
const DefaultMaxNameDistance = 2

// DuplicatePair is two stored interviews that look like the same event
// recorded under slightly different candidate names.
type DuplicatePair struct {
	A          repository.Interview `json:"a"`
	B          repository.Interview `json:"b"`
	Distance   int                  `json:"distance"`
	Similarity float64              `json:"similarity"`
}

// DuplicateFinder flags near-duplicate interviews for review. Exact
// duplicates never reach the database, so only typo variants are found here.
type DuplicateFinder struct {
	Interviews  *repository.InterviewRepo
	MaxDistance int
}

// Find compares interviews sharing an interview minute, feedback form and interviewer.
func (f *DuplicateFinder) Find(ctx context.Context) ([]DuplicatePair, error) {
	rows, err := f.Interviews.List(ctx, repository.InterviewFilters{})
	if err != nil {
		return nil, err
	}
	return FindDuplicates(rows, f.maxDistance()), nil
}

func (f *DuplicateFinder) maxDistance() int {
	if f.MaxDistance <= 0 {
		return DefaultMaxNameDistance
	}
	return f.MaxDistance
}

// FindDuplicates is the in-memory form of DuplicateFinder.Find.
func FindDuplicates(rows []repository.Interview, maxDistance int) []DuplicatePair {
	groups := make(map[string][]repository.Interview)
	for _, r := range rows {
		k := strings.Join([]string{
			r.InterviewDate.UTC().Format("2006-01-02 15:04"),
			strings.ToLower(strings.TrimSpace(r.FeedbackForm)),
			strings.ToLower(strings.TrimSpace(r.Interviewer)),
		}, "|")
		groups[k] = append(groups[k], r)
	}

	var out []DuplicatePair
	for _, g := range groups {
		for i := 0; i < len(g); i++ {
			for j := i + 1; j < len(g); j++ {
				a, b := g[i], g[j]
				if a.CandidateName == b.CandidateName {
					continue
				}
				na, nb := normalizeName(a.CandidateName), normalizeName(b.CandidateName)
				dist := levenshtein.ComputeDistance(na, nb)
				if dist > maxDistance {
					continue
				}
				if nb < na {
					a, b = b, a
				}
				out = append(out, DuplicatePair{A: a, B: b, Distance: dist, Similarity: similarity(na, nb, dist)})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].A.InterviewDate.Equal(out[j].A.InterviewDate) {
			return out[i].A.InterviewDate.Before(out[j].A.InterviewDate)
		}
		return out[i].A.CandidateName < out[j].A.CandidateName
	})
	return out
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func similarity(a, b string, dist int) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(longest)
}
