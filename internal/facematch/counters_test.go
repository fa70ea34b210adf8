package facematch

import (
	"math/rand/v2"
	"testing"
)

func TestSessionCounters_Record(t *testing.T) {
	var c SessionCounters

	c = c.Record(RecognitionResult{FaceDetected: true, IsMatch: true})
	c = c.Record(RecognitionResult{FaceDetected: true})
	c = c.Record(RecognitionResult{})

	want := SessionCounters{ScanCount: 3, MatchCount: 1, ClearCount: 2}
	if c != want {
		t.Errorf("counters = %+v, want %+v", c, want)
	}
}

func TestSessionCounters_ValueSemantics(t *testing.T) {
	before := SessionCounters{ScanCount: 1, ClearCount: 1}
	after := before.Record(RecognitionResult{IsMatch: true})

	if before.ScanCount != 1 || before.MatchCount != 0 {
		t.Errorf("Record mutated its receiver: %+v", before)
	}
	if after.ScanCount != 2 || after.MatchCount != 1 {
		t.Errorf("unexpected next state %+v", after)
	}
}

func TestSessionCounters_InvariantHoldsForAnySequence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	var c SessionCounters

	for i := range 500 {
		c = c.Record(RecognitionResult{
			FaceDetected: rng.IntN(2) == 0,
			IsMatch:      rng.IntN(3) == 0,
		})
		if !c.Consistent() {
			t.Fatalf("invariant broken after scan %d: %+v", i+1, c)
		}
	}
	if c.ScanCount != 500 {
		t.Errorf("ScanCount = %d, want 500", c.ScanCount)
	}
}
