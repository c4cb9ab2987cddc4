package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketStatusIsExact(t *testing.T) {
	for _, status := range TicketStatuses {
		got, ok := ParseTicketStatus(string(status))
		assert.True(t, ok)
		assert.Equal(t, status, got)
	}
	for _, label := range []string{"open", "In_Progress", "DONE", ""} {
		_, ok := ParseTicketStatus(label)
		assert.False(t, ok, label)
	}
	assert.True(t, TicketStatusClosed.Terminal())
	assert.False(t, TicketStatusInProgress.Terminal())
}

func TestParseTicketPriority(t *testing.T) {
	p, ok := ParseTicketPriority("MEDIUM")
	assert.True(t, ok)
	assert.Equal(t, TicketPriorityMedium, p)
	_, ok = ParseTicketPriority("URGENT")
	assert.False(t, ok)
}

func TestTicketCloneDoesNotShareResponses(t *testing.T) {
	original := &Ticket{ID: 1, Responses: []Response{{ID: 1, Message: "first"}}}
	cp := original.Clone()
	cp.Responses[0].Message = "edited"
	cp.Responses = append(cp.Responses, Response{ID: 2, Message: "second"})

	require.Len(t, original.Responses, 1)
	assert.Equal(t, "first", original.Responses[0].Message)

	latest, ok := cp.LatestResponse()
	require.True(t, ok)
	assert.Equal(t, "second", latest.Message)

	_, ok = (&Ticket{}).LatestResponse()
	assert.False(t, ok)
	assert.Nil(t, (*Ticket)(nil).Clone())
}
