// Package demo fabricates verdicts for demonstrations without a recognition backend.
// Fabricated results are flagged and never pass through facematch.Decide.
package demo

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/roster"
)

// BackendName is reported on fabricated results.
const BackendName = "fabricated"

// Fabricator produces random verdicts: a match with probability MatchRate,
// linked to a uniformly chosen roster entry.
type Fabricator struct {
	roster    *roster.Roster
	matchRate float64

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewFabricator creates a fabricator over the given roster. A nil rng uses a
// randomly seeded generator.
func NewFabricator(r *roster.Roster, rng *rand.Rand) *Fabricator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Fabricator{
		roster:    r,
		matchRate: constants.FabricatedMatchRate,
		rng:       rng,
		now:       time.Now,
	}
}

// Fabricate draws one verdict. Matches carry confidence in [85, 99), clears in [90, 99).
func (f *Fabricator) Fabricate() facematch.RecognitionResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := facematch.RecognitionResult{
		FaceDetected: true,
		Backend:      BackendName,
		Fabricated:   true,
		CapturedAt:   f.now(),
	}

	if f.roster.Len() > 0 && f.rng.Float64() < f.matchRate {
		person := f.roster.At(f.rng.IntN(f.roster.Len()))
		result.IsMatch = true
		result.MatchedLabel = person.FullName
		result.MatchedPerson = &person
		result.Confidence = 85 + f.rng.Float64()*14
		return result
	}

	result.Confidence = 90 + f.rng.Float64()*9
	return result
}
