package util

import "time"

// IntervalDuration maps a candle interval string to its duration.
// Unknown intervals fall back to one minute.
func IntervalDuration(iv string) time.Duration {
	switch iv {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	default:
		return time.Minute
	}
}

// BucketStart truncates t to the start of its interval bucket. Feeds may
// stamp in-progress candles mid-bucket; storage and window keys always use
// the bucket start.
func BucketStart(t time.Time, iv string) time.Time {
	return t.Truncate(IntervalDuration(iv))
}
