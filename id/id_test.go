package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/talentwire/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"UserID", id.NewUserID, "usr_"},
		{"JobID", id.NewJobID, "job_"},
		{"ApplicationID", id.NewApplicationID, "app_"},
		{"ProfileID", id.NewProfileID, "prf_"},
		{"ConnectionID", id.NewConnectionID, "conn_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixJob)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixJob {
		t.Errorf("expected prefix %q, got %q", id.PrefixJob, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"UserID", id.NewUserID, id.ParseUserID},
		{"JobID", id.NewJobID, id.ParseJobID},
		{"ApplicationID", id.NewApplicationID, id.ParseApplicationID},
		{"ProfileID", id.NewProfileID, id.ParseProfileID},
		{"ConnectionID", id.NewConnectionID, id.ParseConnectionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseUserID rejects job_", id.NewJobID().String(), id.ParseUserID},
		{"ParseJobID rejects app_", id.NewApplicationID().String(), id.ParseJobID},
		{"ParseApplicationID rejects prf_", id.NewProfileID().String(), id.ParseApplicationID},
		{"ParseProfileID rejects usr_", id.NewUserID().String(), id.ParseProfileID},
		{"ParseConnectionID rejects evt_", id.NewEventID().String(), id.ParseConnectionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected prefix mismatch error for %q", tt.input)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not-a-typeid"},
		{"bad suffix", "usr_!!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := id.Parse(tt.input); err == nil {
				t.Errorf("Parse(%q) should fail", tt.input)
			}
		})
	}
}

func TestMarshalText(t *testing.T) {
	original := id.NewUserID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var parsed id.ID
	if err := parsed.UnmarshalText(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}

	var nilID id.ID
	if err := nilID.UnmarshalText(nil); err != nil {
		t.Fatalf("unmarshal empty failed: %v", err)
	}
	if !nilID.IsNil() {
		t.Error("expected nil ID from empty text")
	}
}

func TestSQLRoundTrip(t *testing.T) {
	original := id.NewJobID()

	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	if err := nilID.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !nilID.IsNil() {
		t.Error("expected nil ID from NULL")
	}
}
