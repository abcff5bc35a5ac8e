package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipantDelta(t *testing.T) {
	active, inactive := true, false

	tests := []struct {
		name string
		prev *bool
		next bool
		want int
	}{
		{name: "insert active", prev: nil, next: true, want: 1},
		{name: "insert inactive", prev: nil, next: false, want: 0},
		{name: "active to inactive", prev: &active, next: false, want: -1},
		{name: "inactive to active", prev: &inactive, next: true, want: 1},
		{name: "active to active", prev: &active, next: true, want: 0},
		{name: "inactive to inactive", prev: &inactive, next: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParticipantDelta(tt.prev, tt.next))
		})
	}
}

func TestParticipantDelta_InterleavedSequenceMatchesActiveCount(t *testing.T) {
	// Replays join/leave/join for two users and checks the running counter
	// against the number of active rows after every step.
	rows := map[string]*bool{}
	count := 0
	steps := []struct {
		user   string
		active bool
	}{
		{"a", true}, {"b", true}, {"a", false}, {"a", false},
		{"b", true}, {"a", true}, {"b", false}, {"b", true},
	}
	for _, s := range steps {
		prev := rows[s.user]
		count += ParticipantDelta(prev, s.active)
		v := s.active
		rows[s.user] = &v

		live := 0
		for _, r := range rows {
			if *r {
				live++
			}
		}
		assert.Equal(t, live, count)
	}
	assert.Equal(t, 2, count)
}
