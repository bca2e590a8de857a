package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameQueue_DrainRunsFIFO(t *testing.T) {
	q := NewFrameQueue()

	var order []int
	q.NextFrame(func() { order = append(order, 1) })
	q.NextFrame(func() { order = append(order, 2) })
	q.NextFrame(func() { order = append(order, 3) })

	assert.Equal(t, 3, q.Drain())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, q.Drain())
}

func TestFrameQueue_CommandQueuedDuringDrainRunsNextDrain(t *testing.T) {
	q := NewFrameQueue()

	ran := false
	q.NextFrame(func() {
		q.NextFrame(func() { ran = true })
	})

	assert.Equal(t, 1, q.Drain())
	assert.False(t, ran)
	assert.Equal(t, 1, q.Drain())
	assert.True(t, ran)
}

func TestFrameQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewFrameQueue()

	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.NextFrame(func() {})
		}()
	}
	wg.Wait()

	assert.Equal(t, n, q.Drain())
}

func TestFrameQueue_After(t *testing.T) {
	q := NewFrameQueue()

	done := make(chan struct{})
	q.After(5*time.Millisecond, func() { close(done) })

	require.Eventually(t, func() bool {
		q.Drain()
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestRoster_FindAndTeams(t *testing.T) {
	r := NewRoster()
	r.Connect(Player{SteamID: 76561198000000001, Name: "Phoenix", Team: TeamTerrorist})
	r.Connect(Player{SteamID: 76561198000000002, Name: "breacher", Team: TeamCounterTerrorist})
	r.Connect(Player{SteamID: 76561198000000003, Name: "bot_carl", Team: TeamCounterTerrorist, Bot: true})

	p, ok := r.Find("phoe")
	require.True(t, ok)
	assert.Equal(t, uint64(76561198000000001), p.SteamID)

	p, ok = r.Find("76561198000000002")
	require.True(t, ok)
	assert.Equal(t, "breacher", p.Name)

	_, ok = r.Find("nobody")
	assert.False(t, ok)

	// Bots are not team members for reward purposes.
	assert.Len(t, r.TeamMembers(TeamCounterTerrorist), 1)

	r.Disconnect(76561198000000001)
	_, ok = r.BySteamID(76561198000000001)
	assert.False(t, ok)
}
