package repository

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSubjectFilterQuotesMetacharacters(t *testing.T) {
	testCases := []struct {
		subject string
		pattern string
	}{
		{"DSA", "^DSA$"},
		{"C++", `^C\+\+$`},
		{"C#.NET", `^C#\.NET$`},
	}

	for _, tc := range testCases {
		t.Run(tc.subject, func(t *testing.T) {
			filter := subjectFilter(tc.subject)
			regex, ok := filter["subject"].(primitive.Regex)
			if !ok {
				t.Fatalf("Expected a regex filter, got %T", filter["subject"])
			}
			if regex.Pattern != tc.pattern {
				t.Errorf("Expected pattern %q, got %q", tc.pattern, regex.Pattern)
			}
			if regex.Options != "i" {
				t.Errorf("Expected case-insensitive match, got options %q", regex.Options)
			}
		})
	}
}
