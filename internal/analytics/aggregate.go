package analytics

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationFacts is one registration flattened into the booleans the
// funnel needs. Fetched in a single query, aggregated in memory.
type RegistrationFacts struct {
	RegistrationID   uuid.UUID
	SessionType      string
	RegisteredAt     time.Time
	Joined           bool
	Engaged          bool // chatted or touched an interaction
	Completed        bool
	Converted        bool // clicked a CTA or special offer
	MaxVideoPosition int
}

// ApplyCompletionThreshold marks a fact completed when its stored furthest
// position crossed the webinar's completion threshold. Covers viewers whose
// completion stamp was lost, e.g. when the beacon's MarkCompleted write
// failed after the progress update landed.
func ApplyCompletionThreshold(facts []RegistrationFacts, durationSeconds, completionPercent int) {
	if durationSeconds <= 0 || completionPercent <= 0 {
		return
	}
	for i := range facts {
		if facts[i].MaxVideoPosition*100 >= durationSeconds*completionPercent {
			facts[i].Completed = true
		}
	}
}

// Funnel is the registration-to-conversion funnel. Each stage requires the
// previous one, so counts never increase down the funnel.
type Funnel struct {
	Registered int `json:"registered"`
	Joined     int `json:"joined"`
	Engaged    int `json:"engaged"`
	Completed  int `json:"completed"`
	Converted  int `json:"converted"`
}

// ComputeFunnel folds facts into funnel counts. A stage only counts when all
// earlier stages held for the same registration.
func ComputeFunnel(facts []RegistrationFacts) Funnel {
	var f Funnel
	for _, r := range facts {
		f.Registered++
		joined := r.Joined
		engaged := joined && r.Engaged
		completed := engaged && r.Completed
		converted := completed && r.Converted
		if joined {
			f.Joined++
		}
		if engaged {
			f.Engaged++
		}
		if completed {
			f.Completed++
		}
		if converted {
			f.Converted++
		}
	}
	return f
}

// DropoffBuckets is how many viewers stopped watching in each tenth of the
// video. Every joined viewer lands in exactly one bucket.
const DropoffBuckets = 10

// BucketDropoff distributes joined viewers into ten buckets by the furthest
// position they reached. durationSeconds <= 0 puts everyone in bucket 0.
func BucketDropoff(facts []RegistrationFacts, durationSeconds int) [DropoffBuckets]int {
	var buckets [DropoffBuckets]int
	for _, r := range facts {
		if !r.Joined {
			continue
		}
		b := 0
		if durationSeconds > 0 {
			b = r.MaxVideoPosition * DropoffBuckets / durationSeconds
			if b >= DropoffBuckets {
				b = DropoffBuckets - 1
			}
			if b < 0 {
				b = 0
			}
		}
		buckets[b]++
	}
	return buckets
}

// RetentionCurve converts dropoff buckets into the share of joined viewers
// still watching at the start of each tenth. The curve is non-increasing.
func RetentionCurve(buckets [DropoffBuckets]int) [DropoffBuckets]float64 {
	total := 0
	for _, n := range buckets {
		total += n
	}
	var curve [DropoffBuckets]float64
	if total == 0 {
		return curve
	}
	remaining := total
	for i := 0; i < DropoffBuckets; i++ {
		curve[i] = float64(remaining) / float64(total)
		remaining -= buckets[i]
	}
	return curve
}

// ChatActivityRow is one minute of the chat timeline.
type ChatActivityRow struct {
	Minute    int `json:"minute"`
	Simulated int `json:"simulated"`
	Real      int `json:"real"`
}

// MergeChatActivity combines simulated and real per-minute counts into one
// sorted timeline. Inputs map minute -> count.
func MergeChatActivity(simulated, real map[int]int) []ChatActivityRow {
	maxMinute := -1
	for m := range simulated {
		if m > maxMinute {
			maxMinute = m
		}
	}
	for m := range real {
		if m > maxMinute {
			maxMinute = m
		}
	}
	rows := make([]ChatActivityRow, 0, maxMinute+1)
	for m := 0; m <= maxMinute; m++ {
		if simulated[m] == 0 && real[m] == 0 {
			continue
		}
		rows = append(rows, ChatActivityRow{Minute: m, Simulated: simulated[m], Real: real[m]})
	}
	return rows
}

// PeakMinute returns the minute with the most combined messages, or -1 for an
// empty timeline. Ties resolve to the earliest minute.
func PeakMinute(rows []ChatActivityRow) int {
	peak, best := -1, 0
	for _, r := range rows {
		if total := r.Simulated + r.Real; total > best {
			best = total
			peak = r.Minute
		}
	}
	return peak
}
