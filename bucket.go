package main

import "time"

// TimeKeyLayout is the canonical bucket key format. Minute and hour keys use
// the same layout with the trailing fields zeroed, so lexicographic order of
// keys is chronological order at every resolution.
const TimeKeyLayout = "2006-01-02 15:04:05"

type Resolution string

const (
	ResolutionSecond Resolution = "second"
	ResolutionMinute Resolution = "minute"
	ResolutionHour   Resolution = "hour"
)

// SecondKey returns the bucket key for the second containing t.
func SecondKey(t time.Time) string {
	return t.Format(TimeKeyLayout)
}

// MinuteKey returns the bucket key for the minute containing t.
func MinuteKey(t time.Time) string {
	year, month, day := t.Date()
	return time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, t.Location()).Format(TimeKeyLayout)
}

// HourKey returns the bucket key for the hour containing t.
func HourKey(t time.Time) string {
	year, month, day := t.Date()
	return time.Date(year, month, day, t.Hour(), 0, 0, 0, t.Location()).Format(TimeKeyLayout)
}

// Bucket accumulates probe outcomes for one target over one time window.
// Invariants, maintained by observe: received <= sent,
// received == successCount, sent == successCount + failCount.
type Bucket struct {
	Sent         int64
	Received     int64
	SuccessCount int64
	FailCount    int64
	RTTs         []float64
}

// observe folds a single probe result into the bucket. The four counter
// updates and the RTT append happen together under the engine lock, so a
// reader can never see them half-applied.
func (b *Bucket) observe(result ProbeResult) {
	b.Sent++
	if result.Success {
		b.Received++
		b.SuccessCount++
		if result.RTTMs.Valid {
			b.RTTs = append(b.RTTs, result.RTTMs.Float64)
		}
	} else {
		b.FailCount++
	}
}

func (b *Bucket) stats() BucketStats {
	var rttSum float64
	for _, rtt := range b.RTTs {
		rttSum += rtt
	}
	return BucketStats{
		Sent:         b.Sent,
		Received:     b.Received,
		SuccessCount: b.SuccessCount,
		FailCount:    b.FailCount,
		RTTSum:       rttSum,
		RTTCount:     int64(len(b.RTTs)),
	}
}

// BucketStats is a copy-on-read view of a Bucket: plain counters plus the
// RTT sum and sample count instead of the raw sample slice. Readers copy
// these under a short-held lock and do all derived work lock-free.
type BucketStats struct {
	Sent         int64
	Received     int64
	SuccessCount int64
	FailCount    int64
	RTTSum       float64
	RTTCount     int64
}

// AvgRTT returns the mean recorded RTT in milliseconds, 0 when no samples
// were recorded.
func (s BucketStats) AvgRTT() float64 {
	if s.RTTCount == 0 {
		return 0
	}
	return s.RTTSum / float64(s.RTTCount)
}

// PacketLoss returns the lost fraction in [0,1], exactly 0 when sent == 0.
func (s BucketStats) PacketLoss() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Sent-s.Received) / float64(s.Sent)
}

func (s BucketStats) add(other BucketStats) BucketStats {
	return BucketStats{
		Sent:         s.Sent + other.Sent,
		Received:     s.Received + other.Received,
		SuccessCount: s.SuccessCount + other.SuccessCount,
		FailCount:    s.FailCount + other.FailCount,
		RTTSum:       s.RTTSum + other.RTTSum,
		RTTCount:     s.RTTCount + other.RTTCount,
	}
}
