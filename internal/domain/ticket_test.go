package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		current TicketStatus
		next    TicketStatus
		want    bool
	}{
		{"pending to received", TicketStatusPending, TicketStatusReceived, true},
		{"pending to in progress", TicketStatusPending, TicketStatusInProgress, true},
		{"pending to rejected", TicketStatusPending, TicketStatusRejected, true},
		{"pending to closed", TicketStatusPending, TicketStatusClosed, false},
		{"received to closed", TicketStatusReceived, TicketStatusClosed, true},
		{"in progress to closed", TicketStatusInProgress, TicketStatusClosed, true},
		{"in progress to received", TicketStatusInProgress, TicketStatusReceived, false},
		{"overdue to in progress", TicketStatusOverdue, TicketStatusInProgress, true},
		{"overdue to closed", TicketStatusOverdue, TicketStatusClosed, true},
		{"closed is terminal", TicketStatusClosed, TicketStatusInProgress, false},
		{"rejected is terminal", TicketStatusRejected, TicketStatusOverdue, false},
		{"no self transition", TicketStatusInProgress, TicketStatusInProgress, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.current, tt.next))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, TicketStatusClosed.IsTerminal())
	assert.True(t, TicketStatusRejected.IsTerminal())
	assert.False(t, TicketStatusOverdue.IsTerminal())
	assert.False(t, TicketStatusPending.IsTerminal())
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, TicketPriorityCritical.Rank(), TicketPriorityHigh.Rank())
	assert.Greater(t, TicketPriorityHigh.Rank(), TicketPriorityMedium.Rank())
	assert.Greater(t, TicketPriorityMedium.Rank(), TicketPriorityLow.Rank())
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, TicketPriorityHigh, ParsePriority("HIGH"))
	assert.Equal(t, TicketPriorityMedium, ParsePriority(""))
	assert.Equal(t, TicketPriorityMedium, ParsePriority("urgent"))
}
