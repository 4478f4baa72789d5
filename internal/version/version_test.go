package version

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"no commit", BuildInfo{Version: "1.0.0"}, "1.0.0"},
		{"commit too short to abbreviate", BuildInfo{Version: "1.0.0", Commit: "abc1234"}, "1.0.0"},
		{"full commit hash", BuildInfo{Version: "1.0.0", Commit: "abc1234567890"}, "1.0.0 (abc1234)"},
		{"eight char commit", BuildInfo{Version: "2.0.0", Commit: "12345678"}, "2.0.0 (1234567)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	b := BuildInfo{Version: "1.2.3", Commit: "abcdef123456", BuildDate: "2026-01-15"}
	got := b.String()

	for _, part := range []string{
		"devgraph version 1.2.3",
		"Commit: abcdef123456",
		"Built: 2026-01-15",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("String() = %q, want to contain %q", got, part)
		}
	}
}

func TestStringUnstampedBuild(t *testing.T) {
	got := BuildInfo{Version: "1.0.0"}.String()
	if !strings.Contains(got, "Commit: unknown") || !strings.Contains(got, "Built: unknown") {
		t.Errorf("String() = %q, want unknown placeholders", got)
	}
}

func TestCurrentKeepsStampedValues(t *testing.T) {
	origCommit, origDate := Commit, BuildDate
	defer func() {
		Commit, BuildDate = origCommit, origDate
	}()

	Commit = "deadbeefcafe"
	BuildDate = "2026-02-01"

	got := Current()
	if got.Commit != "deadbeefcafe" || got.BuildDate != "2026-02-01" {
		t.Errorf("Current() = %+v, stamped values should win over build info", got)
	}
	if got.Version != Version {
		t.Errorf("Current().Version = %q, want %q", got.Version, Version)
	}
}

func TestDefaultVersionIsSemver(t *testing.T) {
	if parts := strings.Split(Version, "."); len(parts) < 2 {
		t.Errorf("Version %q doesn't appear to be semver", Version)
	}
}
