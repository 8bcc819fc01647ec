package rating

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	e := Engine{}
	tests := []struct {
		name  string
		in    State
		value int
		want  State
	}{
		{"first vote", State{}, 4, State{Votes: 1, Stars: 4}},
		{"second vote", State{Votes: 1, Stars: 5}, 3, State{Votes: 2, Stars: 4}},
		{"third vote", State{Votes: 2, Stars: 4}, 1, State{Votes: 3, Stars: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Add(tt.in, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Votes, got.Votes)
			assert.InDelta(t, tt.want.Stars, got.Stars, 1e-9)
		})
	}
}

func TestInvalidValues(t *testing.T) {
	e := Engine{}
	for _, v := range []int{0, -1, 6, 100} {
		_, err := e.Add(State{}, v)
		assert.ErrorIs(t, err, ErrInvalidRating, "add %d", v)
		_, err = e.Remove(State{Votes: 1, Stars: 3}, v)
		assert.ErrorIs(t, err, ErrInvalidRating, "remove %d", v)
		_, err = e.Replace(State{Votes: 1, Stars: 3}, 3, v)
		assert.ErrorIs(t, err, ErrInvalidRating, "replace to %d", v)
	}
}

func TestRemove(t *testing.T) {
	e := Engine{}

	got, err := e.Remove(State{Votes: 1, Stars: 4}, 4)
	require.NoError(t, err)
	assert.Equal(t, State{}, got)

	got, err = e.Remove(State{Votes: 2, Stars: 4}, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Votes)
	assert.InDelta(t, 3, got.Stars, 1e-9)

	_, err = e.Remove(State{}, 3)
	assert.ErrorIs(t, err, ErrNoVotes)
}

func TestNegativeVotesAreRejectedNotClamped(t *testing.T) {
	e := Engine{}
	_, err := e.Add(State{Votes: -1, Stars: 0}, 3)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = e.Remove(State{Votes: -2, Stars: 0}, 3)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestScenarioFreshRestaurant(t *testing.T) {
	e := Engine{}
	s, err := e.Add(State{}, 5)
	require.NoError(t, err)
	assert.Equal(t, State{Votes: 1, Stars: 5}, s)

	s, err = e.Add(s, 3)
	require.NoError(t, err)
	assert.Equal(t, State{Votes: 2, Stars: 4}, s)
}

func TestScenarioChangedRating(t *testing.T) {
	e := Engine{}
	s := State{Votes: 2, Stars: 4}

	mid, err := e.Remove(s, 5)
	require.NoError(t, err)
	assert.Equal(t, State{Votes: 1, Stars: 3}, mid)

	final, err := e.Replace(s, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, State{Votes: 2, Stars: 2}, final)
}

func TestReplaceOnlyVote(t *testing.T) {
	got, err := Engine{}.Replace(State{Votes: 1, Stars: 2}, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, State{Votes: 1, Stars: 5}, got)
}

func TestRoundingAppliesToPresentationOnly(t *testing.T) {
	e := NewEngine(OneDecimal)
	s, err := e.Add(State{Votes: 2, Stars: 4}, 4)
	require.NoError(t, err)
	s, err = e.Add(s, 5)
	require.NoError(t, err)
	// 17/4 = 4.25 is kept, and shown as 4.3
	assert.Equal(t, 4.25, s.Stars)
	assert.Equal(t, State{Votes: 4, Stars: 4.3}, e.Present(s))

	s, err = e.Add(State{Votes: 2, Stars: 2}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3, s.Stars, 1e-9)
	assert.Equal(t, 2.3, e.Present(s).Stars)

	assert.Equal(t, State{Votes: 1, Stars: 2.345}, Engine{}.Present(State{Votes: 1, Stars: 2.345}))
}

// A rounding engine fed its own output must still track the exact mean.
func TestRoundingDoesNotCompound(t *testing.T) {
	e := NewEngine(OneDecimal)
	rng := rand.New(rand.NewSource(3))
	var values []int
	s := State{}
	for i := 0; i < 40; i++ {
		v := rng.Intn(MaxValue) + MinValue
		values = append(values, v)
		var err error
		s, err = e.Add(s, v)
		require.NoError(t, err)
	}
	want, err := Recompute(values)
	require.NoError(t, err)
	assert.InDelta(t, want.Stars, s.Stars, 1e-9)
	assert.InDelta(t, want.Stars, e.Present(s).Stars, 0.05)
}

func TestParseRounding(t *testing.T) {
	r, err := ParseRounding("none")
	require.NoError(t, err)
	assert.Equal(t, 2.345, r(2.345))

	r, err = ParseRounding("one_decimal")
	require.NoError(t, err)
	assert.Equal(t, 2.3, r(2.345))

	_, err = ParseRounding("bankers")
	assert.Error(t, err)
}

func TestRecompute(t *testing.T) {
	s, err := Recompute(nil)
	require.NoError(t, err)
	assert.Equal(t, State{}, s)

	s, err = Recompute([]int{5, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, State{Votes: 3, Stars: 3}, s)

	_, err = Recompute([]int{5, 9})
	assert.ErrorIs(t, err, ErrInvalidRating)
}

// Random add/replace/remove sequences must agree with recomputing the mean
// of the surviving contributions.
func TestIncrementalMatchesRecompute(t *testing.T) {
	e := Engine{}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		contributions := map[int]int{}
		s := State{}
		for op := 0; op < 200; op++ {
			rater := rng.Intn(15)
			value := rng.Intn(MaxValue) + MinValue
			prev, had := contributions[rater]
			var err error
			switch {
			case had && rng.Intn(4) == 0:
				s, err = e.Remove(s, prev)
				delete(contributions, rater)
			case had:
				s, err = e.Replace(s, prev, value)
				contributions[rater] = value
			default:
				s, err = e.Add(s, value)
				contributions[rater] = value
			}
			require.NoError(t, err)

			values := make([]int, 0, len(contributions))
			for _, v := range contributions {
				values = append(values, v)
			}
			want, err := Recompute(values)
			require.NoError(t, err)
			require.Equal(t, want.Votes, s.Votes)
			require.InDelta(t, want.Stars, s.Stars, 1e-6)
			require.GreaterOrEqual(t, s.Stars, 0.0)
			require.LessOrEqual(t, s.Stars, float64(MaxValue))
		}
	}
}
