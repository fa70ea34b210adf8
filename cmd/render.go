package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/trainer"
)

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
)

// printVerdict prints one recognition result. Recognized persons are red,
// clear results green.
func printVerdict(prefix string, r facematch.RecognitionResult) {
	switch r.Verdict() {
	case facematch.VerdictRecognized:
		colorRed.Printf("%s RECOGNIZED %s (%s)\n", prefix, r.MatchedLabel, r.ConfidenceText())
		if p := r.MatchedPerson; p != nil {
			fmt.Printf("    national id: %s\n", p.NationalID)
			fmt.Printf("    offense:     %s\n", p.Offense)
			fmt.Printf("    case file:   %s (%s, %s)\n", p.CaseFile, p.Court, p.IssuedOn)
		}
	case facematch.VerdictUnrecognized:
		colorGreen.Printf("%s CLEAR (%s)\n", prefix, r.ConfidenceText())
	default:
		colorYellow.Printf("%s NO FACE\n", prefix)
	}
	if r.Fabricated {
		colorCyan.Println("    (fabricated)")
	}
}

func printCounters(c facematch.SessionCounters) {
	fmt.Printf("Scans: %d  Matches: %d  Clear: %d\n", c.ScanCount, c.MatchCount, c.ClearCount)
}

func printQuality(q trainer.Quality) {
	switch q {
	case trainer.QualityExcellent:
		colorGreen.Println("Quality: excellent - the photos are very consistent")
	case trainer.QualityAcceptable:
		colorYellow.Println("Quality: acceptable")
	default:
		colorRed.Println("Quality: poor - consider more consistent photos")
	}
}
