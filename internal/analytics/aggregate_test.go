package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func facts(rows ...RegistrationFacts) []RegistrationFacts { return rows }

func TestComputeFunnelCumulative(t *testing.T) {
	f := ComputeFunnel(facts(
		RegistrationFacts{Joined: true, Engaged: true, Completed: true, Converted: true},
		RegistrationFacts{Joined: true, Engaged: true, Completed: true},
		RegistrationFacts{Joined: true, Engaged: true},
		RegistrationFacts{Joined: true},
		RegistrationFacts{},
	))
	assert.Equal(t, Funnel{Registered: 5, Joined: 4, Engaged: 3, Completed: 2, Converted: 1}, f)
}

func TestComputeFunnelLaterStageWithoutEarlierDoesNotCount(t *testing.T) {
	// Completed flag set but never joined: a data quirk the funnel must not
	// let break monotonicity.
	f := ComputeFunnel(facts(
		RegistrationFacts{Completed: true, Converted: true},
		RegistrationFacts{Joined: true, Completed: true}, // skipped engagement
	))
	assert.Equal(t, 2, f.Registered)
	assert.Equal(t, 1, f.Joined)
	assert.Equal(t, 0, f.Engaged)
	assert.Equal(t, 0, f.Completed)
	assert.Equal(t, 0, f.Converted)
}

func TestComputeFunnelMonotone(t *testing.T) {
	f := ComputeFunnel(facts(
		RegistrationFacts{Joined: true, Converted: true},
		RegistrationFacts{Engaged: true, Completed: true},
		RegistrationFacts{Joined: true, Engaged: true, Converted: true},
	))
	assert.GreaterOrEqual(t, f.Registered, f.Joined)
	assert.GreaterOrEqual(t, f.Joined, f.Engaged)
	assert.GreaterOrEqual(t, f.Engaged, f.Completed)
	assert.GreaterOrEqual(t, f.Completed, f.Converted)
}

func TestApplyCompletionThreshold(t *testing.T) {
	rows := facts(
		RegistrationFacts{Joined: true, MaxVideoPosition: 900},  // 90% of 1000 at 80% threshold
		RegistrationFacts{Joined: true, MaxVideoPosition: 799},  // just under
		RegistrationFacts{Joined: true, MaxVideoPosition: 800},  // exactly at threshold
		RegistrationFacts{Joined: true, Completed: true},        // stamp already set, stays
	)
	ApplyCompletionThreshold(rows, 1000, 80)

	assert.True(t, rows[0].Completed, "progress past the threshold counts even without a stamp")
	assert.False(t, rows[1].Completed)
	assert.True(t, rows[2].Completed)
	assert.True(t, rows[3].Completed)
}

func TestApplyCompletionThresholdZeroDuration(t *testing.T) {
	rows := facts(RegistrationFacts{MaxVideoPosition: 500})
	ApplyCompletionThreshold(rows, 0, 80)
	assert.False(t, rows[0].Completed)
}

func TestBucketDropoff(t *testing.T) {
	duration := 1000
	buckets := BucketDropoff(facts(
		RegistrationFacts{Joined: true, MaxVideoPosition: 0},    // bucket 0
		RegistrationFacts{Joined: true, MaxVideoPosition: 99},   // bucket 0
		RegistrationFacts{Joined: true, MaxVideoPosition: 100},  // bucket 1
		RegistrationFacts{Joined: true, MaxVideoPosition: 550},  // bucket 5
		RegistrationFacts{Joined: true, MaxVideoPosition: 1000}, // clamped to bucket 9
		RegistrationFacts{Joined: true, MaxVideoPosition: 5000}, // clamped to bucket 9
		RegistrationFacts{Joined: false, MaxVideoPosition: 500}, // never joined, excluded
	), duration)

	assert.Equal(t, 2, buckets[0])
	assert.Equal(t, 1, buckets[1])
	assert.Equal(t, 1, buckets[5])
	assert.Equal(t, 2, buckets[9])

	total := 0
	for _, n := range buckets {
		total += n
	}
	assert.Equal(t, 6, total, "every joined viewer lands in exactly one bucket")
}

func TestBucketDropoffZeroDuration(t *testing.T) {
	buckets := BucketDropoff(facts(
		RegistrationFacts{Joined: true, MaxVideoPosition: 500},
	), 0)
	assert.Equal(t, 1, buckets[0])
}

func TestRetentionCurveNonIncreasing(t *testing.T) {
	buckets := [DropoffBuckets]int{3, 1, 0, 2, 0, 0, 1, 0, 0, 3}
	curve := RetentionCurve(buckets)

	assert.Equal(t, 1.0, curve[0], "everyone is watching at the start")
	for i := 1; i < DropoffBuckets; i++ {
		assert.LessOrEqual(t, curve[i], curve[i-1])
	}
}

func TestRetentionCurveEmpty(t *testing.T) {
	curve := RetentionCurve([DropoffBuckets]int{})
	assert.Equal(t, 0.0, curve[0])
}

func TestMergeChatActivity(t *testing.T) {
	rows := MergeChatActivity(
		map[int]int{0: 2, 5: 1},
		map[int]int{5: 3, 7: 1},
	)
	assert.Equal(t, []ChatActivityRow{
		{Minute: 0, Simulated: 2, Real: 0},
		{Minute: 5, Simulated: 1, Real: 3},
		{Minute: 7, Simulated: 0, Real: 1},
	}, rows)
}

func TestMergeChatActivityEmpty(t *testing.T) {
	assert.Empty(t, MergeChatActivity(map[int]int{}, map[int]int{}))
}

func TestPeakMinute(t *testing.T) {
	rows := []ChatActivityRow{
		{Minute: 0, Simulated: 2, Real: 1},
		{Minute: 3, Simulated: 1, Real: 4},
		{Minute: 9, Simulated: 0, Real: 5},
	}
	assert.Equal(t, 3, PeakMinute(rows))

	// Ties resolve to the earliest minute.
	assert.Equal(t, 0, PeakMinute([]ChatActivityRow{
		{Minute: 0, Simulated: 2},
		{Minute: 1, Real: 2},
	}))

	assert.Equal(t, -1, PeakMinute(nil))
}
