package verification

import (
	"fmt"

	"github.com/fantasylifeleague/healthapi/internal/health"
)

// SourceAuthenticator checks workout sources against an allow-list.
type SourceAuthenticator struct {
	trusted map[string]struct{}
}

// NewSourceAuthenticator creates an authenticator trusting the given source
// identifiers. Matching is exact and case-sensitive.
func NewSourceAuthenticator(sources []string) *SourceAuthenticator {
	trusted := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		trusted[s] = struct{}{}
	}
	return &SourceAuthenticator{trusted: trusted}
}

// Check returns one warning per workout from an unrecognized source.
func (a *SourceAuthenticator) Check(raw health.RawHealthData) []string {
	var warnings []string
	for _, w := range raw.Workouts {
		if _, ok := a.trusted[w.Source]; !ok {
			warnings = append(warnings, fmt.Sprintf("Workout from unrecognized source: %s", w.Source))
		}
	}
	return warnings
}
