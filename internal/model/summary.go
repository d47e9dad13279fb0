package model

import "time"

// LoadSummary captures metrics from loading one reference table.
type LoadSummary struct {
	Table         string
	FilePath      string
	FileSHA256    string
	LoadID        string
	AlreadyLoaded bool
	RowsRead      int64
	RowsLoaded    int64
	RowsRejected  int64
	DurationCopy  time.Duration
	DurationTotal time.Duration
}
