// Package match computes skill-overlap scores between job requirements
// and candidate skills. Matches are transient values, recomputed on
// demand and never persisted.
package match

import (
	"math"
	"sort"
	"strings"

	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/profile"
)

// Tokenize splits a free-text skill string into a normalized set.
// Delimiters are comma, semicolon, and pipe; tokens are trimmed and
// lowercased, empties dropped.
func Tokenize(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	}) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

// Score measures how much of the required skill set the candidate
// covers: round(100 × |intersection| / |required|), 0..100.
// An empty required set scores 0.
//
// The score is asymmetric: recommending jobs to a candidate and
// recommending candidates for a job both call Score with arguments
// swapped accordingly.
func Score(required, candidate string) int {
	req := Tokenize(required)
	if len(req) == 0 {
		return 0
	}
	cand := Tokenize(candidate)

	overlap := 0
	for skill := range req {
		if _, ok := cand[skill]; ok {
			overlap++
		}
	}
	return int(math.Round(100 * float64(overlap) / float64(len(req))))
}

// JobMatch pairs a job with its score for one candidate.
type JobMatch struct {
	Job   *job.Job
	Score int
}

// RankJobs scores every job against the candidate's skills and returns
// matches with score > 0, sorted by descending score. Ties break on
// ascending job ID (IDs are K-sortable, so this is creation order).
// A limit of 0 means no limit.
func RankJobs(candidateSkills string, jobs []*job.Job, limit int) []JobMatch {
	var out []JobMatch
	for _, j := range jobs {
		score := Score(j.Skills, candidateSkills)
		if score == 0 {
			continue
		}
		out = append(out, JobMatch{Job: j, Score: score})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Score != out[k].Score {
			return out[i].Score > out[k].Score
		}
		return out[i].Job.ID.String() < out[k].Job.ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CandidateMatch pairs a jobseeker profile with its score for one job.
type CandidateMatch struct {
	Profile *profile.Profile
	Score   int
}

// RankCandidates scores every profile against a job's required skills
// and returns matches with score > 0, sorted by descending score. Ties
// break on ascending profile ID. A limit of 0 means no limit.
func RankCandidates(requiredSkills string, profiles []*profile.Profile, limit int) []CandidateMatch {
	var out []CandidateMatch
	for _, p := range profiles {
		score := Score(requiredSkills, p.Skills)
		if score == 0 {
			continue
		}
		out = append(out, CandidateMatch{Profile: p, Score: score})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Score != out[k].Score {
			return out[i].Score > out[k].Score
		}
		return out[i].Profile.ID.String() < out[k].Profile.ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
