package facematch

// SessionCounters tracks on-demand scan outcomes for one process.
// ScanCount == MatchCount + ClearCount always holds for values built with Record.
type SessionCounters struct {
	ScanCount  int `json:"scan_count"`
	MatchCount int `json:"match_count"`
	ClearCount int `json:"clear_count"`
}

// Record returns the counters after one more completed scan.
func (c SessionCounters) Record(result RecognitionResult) SessionCounters {
	c.ScanCount++
	if result.IsMatch {
		c.MatchCount++
	} else {
		c.ClearCount++
	}
	return c
}

// Consistent reports whether the scan total equals matches plus clears.
func (c SessionCounters) Consistent() bool {
	return c.ScanCount == c.MatchCount+c.ClearCount
}
