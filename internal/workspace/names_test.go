package workspace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Kafka", false},
		{"spaces and digits", "Team 42 backlog", false},
		{"unicode", "Équipe données", false},
		{"max length", strings.Repeat("a", MaxNameLength), false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"colon", "a:b", true},
		{"control", "a\tb", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName("profile name", tt.input)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, "profile name", verr.Field)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Kafka":                 "kafka",
		"Apache Kafka 2.0":      "apache-kafka-2-0",
		"  spaced  out  ":       "spaced-out",
		"12w":                   "12w",
		"Équipe":                "quipe",
		"!!!":                   "item",
		strings.Repeat("x", 80): strings.Repeat("x", maxSlugLength),
	}
	for in, want := range tests {
		require.Equal(t, want, Slugify(in), in)
	}
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"default", "kafka-2", "12w", strings.Repeat("x", maxSlugLength) + "-10"} {
		require.True(t, ValidID(id), id)
	}
	for _, id := range []string{"", "..", "../other", "a/b", "Kafka", "-a", "a-", "a--b", "a.b", `a\b`} {
		require.False(t, ValidID(id), id)
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"kafka": true, "kafka-2": true}
	got := uniqueSlug("kafka", func(s string) bool { return taken[s] })
	require.Equal(t, "kafka-3", got)
	require.Equal(t, "spark", uniqueSlug("spark", func(s string) bool { return taken[s] }))
}
