package probe

import "time"

// Config holds configuration for a probe run
type Config struct {
	BaseURL    string        // Base URL of the tracker
	Rounds     int           // Number of /view samples
	Interval   time.Duration // Pause between two samples
	Workers    int           // Concurrent /rank lookups
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Where the last sampled view is saved; empty skips saving
	Verbose    bool          // Log every violation as it is found
}

// Stats holds probe statistics
type Stats struct {
	Rounds          int
	ViewsChecked    int
	ViewsFailed     int
	Violations      int
	RanksChecked    int
	RanksMismatched int
	MaxSeq          uint64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
