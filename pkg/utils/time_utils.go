package utils

import "time"

// Timestamps are stored as unix seconds.
func NowUnixSeconds() int64 { return time.Now().Unix() }
