package feed

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xraph/talentwire/job"
)

// Column limits matching the persisted schema.
const (
	maxTitleLen       = 255
	maxCompanyLen     = 255
	maxLocationLen    = 255
	maxSkillsLen      = 500
	maxDescriptionLen = 10000
)

var (
	multiSpace = regexp.MustCompile(`\s+`)
	htmlTag    = regexp.MustCompile(`<[^>]*>`)

	htmlEntities = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// Normalize sanitizes a raw listing into a job record: whitespace
// collapse, length clamps, markup stripping, and job-type mapping.
// Identity fields (ID, PostedBy, timestamps) are left for the caller.
func Normalize(l Listing) *job.Job {
	return &job.Job{
		Title:       normalizeTitle(l.Title),
		Company:     normalizeCompany(l.Company),
		Description: normalizeDescription(l.Description),
		Skills:      normalizeSkills(l.Skills),
		Location:    normalizeLocation(l.Location),
		Type:        MapJobType(l.JobType),
		SalaryMin:   l.SalaryMin,
		SalaryMax:   l.SalaryMax,
		Status:      job.StatusOpen,
		Source:      l.Source,
		ExternalID:  l.ExternalID,
		SourceURL:   l.SourceURL,
	}
}

func normalizeTitle(title string) string {
	if title == "" {
		return "Untitled Position"
	}
	return clamp(collapseSpaces(title), maxTitleLen)
}

func normalizeCompany(company string) string {
	if company == "" {
		return "Unknown Company"
	}
	return clamp(collapseSpaces(company), maxCompanyLen)
}

func normalizeDescription(description string) string {
	if description == "" {
		return "No description available."
	}

	cleaned := htmlTag.ReplaceAllString(description, "")
	cleaned = strings.TrimSpace(htmlEntities.Replace(cleaned))

	if len(cleaned) > maxDescriptionLen {
		cleaned = clamp(cleaned, maxDescriptionLen-3) + "..."
	}
	return cleaned
}

// normalizeSkills splits on common delimiters, trims, drops empties
// and duplicates, and rejoins with a consistent separator.
func normalizeSkills(skills string) string {
	if skills == "" {
		return ""
	}

	seen := make(map[string]struct{})
	var out []string
	for _, skill := range strings.FieldsFunc(skills, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	}) {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, skill)
	}
	return clamp(strings.Join(out, ", "), maxSkillsLen)
}

func normalizeLocation(location string) string {
	if location == "" {
		return ""
	}
	return clamp(collapseSpaces(location), maxLocationLen)
}

// MapJobType maps free-text contract descriptions onto the closed
// job.Type enum. Unknown input defaults to full-time.
func MapJobType(jobType string) job.Type {
	t := strings.ToLower(strings.TrimSpace(jobType))
	switch {
	case t == "":
		return job.TypeFullTime
	case strings.Contains(t, "full"), strings.Contains(t, "permanent"):
		return job.TypeFullTime
	case strings.Contains(t, "part"):
		return job.TypePartTime
	case strings.Contains(t, "contract"), strings.Contains(t, "freelance"):
		return job.TypeContract
	case strings.Contains(t, "remote"):
		return job.TypeRemote
	case strings.Contains(t, "hybrid"):
		return job.TypeHybrid
	default:
		return job.TypeFullTime
	}
}

func collapseSpaces(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// clamp truncates s to at most max bytes without splitting a rune.
func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
