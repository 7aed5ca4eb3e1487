package feed

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/xraph/talentwire/job"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	j := Normalize(Listing{Source: "adzuna", ExternalID: "ext-1"})

	if j.Title != "Untitled Position" {
		t.Errorf("Title = %q", j.Title)
	}
	if j.Company != "Unknown Company" {
		t.Errorf("Company = %q", j.Company)
	}
	if j.Description != "No description available." {
		t.Errorf("Description = %q", j.Description)
	}
	if j.Type != job.TypeFullTime {
		t.Errorf("Type = %q, want full-time", j.Type)
	}
	if j.Status != job.StatusOpen {
		t.Errorf("Status = %q, want open", j.Status)
	}
	if j.Source != "adzuna" || j.ExternalID != "ext-1" {
		t.Errorf("provenance not carried: %q %q", j.Source, j.ExternalID)
	}
}

func TestNormalizeWhitespaceAndClamps(t *testing.T) {
	t.Parallel()

	j := Normalize(Listing{
		Title:    "  Senior    Go\tEngineer  ",
		Company:  strings.Repeat("x", 300),
		Location: " New   York ",
	})

	if j.Title != "Senior Go Engineer" {
		t.Errorf("Title = %q", j.Title)
	}
	if len(j.Company) != maxCompanyLen {
		t.Errorf("Company length = %d, want %d", len(j.Company), maxCompanyLen)
	}
	if j.Location != "New York" {
		t.Errorf("Location = %q", j.Location)
	}
}

func TestNormalizeDescriptionStripsMarkup(t *testing.T) {
	t.Parallel()

	j := Normalize(Listing{
		Description: "<p>Build &amp; ship <b>services</b>&nbsp;in Go&#39;s ecosystem</p>",
	})
	if j.Description != "Build & ship services in Go's ecosystem" {
		t.Errorf("Description = %q", j.Description)
	}

	long := Normalize(Listing{Description: strings.Repeat("a", maxDescriptionLen+100)})
	if len(long.Description) != maxDescriptionLen {
		t.Errorf("Description length = %d, want %d", len(long.Description), maxDescriptionLen)
	}
	if !strings.HasSuffix(long.Description, "...") {
		t.Error("clamped description should end with ellipsis")
	}
}

func TestNormalizeClampsOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// "é" is two bytes; an odd byte limit would land mid-rune.
	j := Normalize(Listing{
		Title:       strings.Repeat("é", maxTitleLen),
		Description: strings.Repeat("é", maxDescriptionLen),
	})

	if !utf8.ValidString(j.Title) {
		t.Errorf("Title is not valid UTF-8: %q", j.Title[:8])
	}
	if len(j.Title) > maxTitleLen {
		t.Errorf("Title length = %d, want <= %d", len(j.Title), maxTitleLen)
	}

	if !utf8.ValidString(j.Description) {
		t.Error("Description is not valid UTF-8")
	}
	if len(j.Description) > maxDescriptionLen {
		t.Errorf("Description length = %d, want <= %d", len(j.Description), maxDescriptionLen)
	}
	if !strings.HasSuffix(j.Description, "...") {
		t.Error("clamped description should end with ellipsis")
	}
}

func TestNormalizeSkills(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"go, sql ,go;docker|", "go, sql, docker"},
		{"", ""},
		{" ; | , ", ""},
		{"react", "react"},
	}
	for _, tt := range tests {
		j := Normalize(Listing{Skills: tt.in})
		if j.Skills != tt.want {
			t.Errorf("Skills(%q) = %q, want %q", tt.in, j.Skills, tt.want)
		}
	}
}

func TestMapJobType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want job.Type
	}{
		{"", job.TypeFullTime},
		{"Full Time", job.TypeFullTime},
		{"permanent", job.TypeFullTime},
		{"Part-time", job.TypePartTime},
		{"contract", job.TypeContract},
		{"freelance gig", job.TypeContract},
		{"100% remote", job.TypeRemote},
		{"hybrid (2 days)", job.TypeHybrid},
		{"internship", job.TypeFullTime},
	}
	for _, tt := range tests {
		if got := MapJobType(tt.in); got != tt.want {
			t.Errorf("MapJobType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
