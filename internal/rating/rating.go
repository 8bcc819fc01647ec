// Package rating maintains running (votes, stars) aggregates without
// rescanning the individual contributions.
package rating

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MinValue = 1
	MaxValue = 5
)

var (
	// ErrInvalidRating is returned for values outside MinValue..MaxValue.
	ErrInvalidRating = errors.New("invalid rating")
	// ErrNoVotes is returned when removing a contribution from an empty aggregate.
	ErrNoVotes = errors.New("no votes to remove")
	// ErrInvalidState is returned for aggregates with negative votes or
	// stars outside the value range.
	ErrInvalidState = errors.New("invalid rating state")
)

// State is the aggregate of one rated target.
type State struct {
	Votes int     `json:"votes"`
	Stars float64 `json:"stars"`
}

// Validate checks a single contribution.
func Validate(value int) error {
	if value < MinValue || value > MaxValue {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidRating, value, MinValue, MaxValue)
	}
	return nil
}

func (s State) validate() error {
	if s.Votes < 0 || s.Stars < 0 || s.Stars > MaxValue || math.IsNaN(s.Stars) {
		return fmt.Errorf("%w: votes=%d stars=%v", ErrInvalidState, s.Votes, s.Stars)
	}
	return nil
}

// RoundingPolicy maps a mean to the value shown to callers.  It is never
// applied to a stored aggregate.
type RoundingPolicy func(stars float64) float64

// NoRounding keeps the full precision of the running mean.
func NoRounding(stars float64) float64 { return stars }

// OneDecimal rounds half away from zero to one decimal place.
func OneDecimal(stars float64) float64 { return math.Round(stars*10) / 10 }

// ParseRounding resolves a configured policy name.
func ParseRounding(name string) (RoundingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NoRounding, nil
	case "one_decimal", "1dp":
		return OneDecimal, nil
	default:
		return nil, fmt.Errorf("unknown rating rounding %q", name)
	}
}

// Engine applies contributions to aggregates.  The zero value uses
// NoRounding.
type Engine struct {
	Round RoundingPolicy
}

// NewEngine returns an engine with the given rounding policy.
func NewEngine(round RoundingPolicy) Engine {
	return Engine{Round: round}
}

// Add folds value into s.
func (e Engine) Add(s State, value int) (State, error) {
	if err := Validate(value); err != nil {
		return State{}, err
	}
	if err := s.validate(); err != nil {
		return State{}, err
	}
	return e.finish(add(s, value)), nil
}

// Remove takes value back out of s.  Removing the last vote yields (0, 0).
func (e Engine) Remove(s State, value int) (State, error) {
	if err := Validate(value); err != nil {
		return State{}, err
	}
	if err := s.validate(); err != nil {
		return State{}, err
	}
	out, err := remove(s, value)
	if err != nil {
		return State{}, err
	}
	return e.finish(out), nil
}

// Replace swaps a contributor's previous value for next.  The removal and
// the add both run on unrounded intermediates.
func (e Engine) Replace(s State, previous, next int) (State, error) {
	if err := Validate(previous); err != nil {
		return State{}, err
	}
	if err := Validate(next); err != nil {
		return State{}, err
	}
	if err := s.validate(); err != nil {
		return State{}, err
	}
	mid, err := remove(s, previous)
	if err != nil {
		return State{}, err
	}
	return e.finish(add(mid, next)), nil
}

// Recompute builds the aggregate of values from scratch.
func Recompute(values []int) (State, error) {
	if len(values) == 0 {
		return State{}, nil
	}
	sum := 0
	for _, v := range values {
		if err := Validate(v); err != nil {
			return State{}, err
		}
		sum += v
	}
	return State{Votes: len(values), Stars: float64(sum) / float64(len(values))}, nil
}

func add(s State, value int) State {
	if s.Votes == 0 {
		return State{Votes: 1, Stars: float64(value)}
	}
	votes := s.Votes + 1
	return State{Votes: votes, Stars: (s.Stars*float64(s.Votes) + float64(value)) / float64(votes)}
}

func remove(s State, value int) (State, error) {
	switch {
	case s.Votes <= 0:
		return State{}, fmt.Errorf("%w: votes=%d", ErrNoVotes, s.Votes)
	case s.Votes == 1:
		return State{}, nil
	}
	votes := s.Votes - 1
	return State{Votes: votes, Stars: (s.Stars*float64(s.Votes) - float64(value)) / float64(votes)}, nil
}

func (e Engine) finish(s State) State {
	// float drift can push a mean a hair outside the range
	s.Stars = math.Min(math.Max(s.Stars, 0), MaxValue)
	return s
}

// Present applies the rounding policy to s for display.  Add, Remove and
// Replace return unrounded aggregates; only their presentation goes
// through Present.
func (e Engine) Present(s State) State {
	if e.Round != nil {
		s.Stars = e.Round(s.Stars)
	}
	return s
}
