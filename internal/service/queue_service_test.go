package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sahiiil1406/cpify/internal/models"
)

func newTestQueue(sender Sender) (*QueueService, *MatchService) {
	matchService := newTestMatchService(sender)
	return NewQueueService(matchService, zap.NewNop()), matchService
}

func TestQueueService_PairsInArrivalOrder(t *testing.T) {
	sender := newFakeSender("alice", "bob", "carol", "dave")
	queue, _ := newTestQueue(sender)

	queue.Enqueue("alice")
	assert.Empty(t, sender.framesOfType(models.FrameMatchFound))

	queue.Enqueue("bob")

	// 먼저 온 둘이 짝이 됨
	found := sender.framesOfType(models.FrameMatchFound)
	require.Len(t, found, 2)
	assert.Equal(t, "alice", found[0].Username)
	assert.Equal(t, models.MatchFoundPayload{Opponent: "bob"}, found[0].Payload)
	assert.Equal(t, "bob", found[1].Username)
	assert.Equal(t, models.MatchFoundPayload{Opponent: "alice"}, found[1].Payload)

	assert.Empty(t, queue.Waiting())
}

func TestQueueService_FIFOAcrossManyUsers(t *testing.T) {
	users := make([]string, 6)
	for i := range users {
		users[i] = fmt.Sprintf("user%d", i)
	}

	sender := newFakeSender(users...)
	queue, _ := newTestQueue(sender)

	for _, u := range users {
		queue.Enqueue(u)
	}

	// (user0,user1), (user2,user3), (user4,user5) 순서대로 매칭
	found := sender.framesOfType(models.FrameMatchFound)
	require.Len(t, found, 6)
	for i := 0; i < 6; i += 2 {
		first := found[i].Payload.(models.MatchFoundPayload)
		second := found[i+1].Payload.(models.MatchFoundPayload)
		assert.Equal(t, found[i+1].Username, first.Opponent)
		assert.Equal(t, found[i].Username, second.Opponent)
		// 자기 자신과는 절대 매칭되지 않음
		assert.NotEqual(t, found[i].Username, first.Opponent)
	}
}

func TestQueueService_EnqueueIdempotent(t *testing.T) {
	sender := newFakeSender("alice")
	queue, _ := newTestQueue(sender)

	queue.Enqueue("alice")
	queue.Enqueue("alice")
	queue.Enqueue("alice")

	// 중복 등록은 무시되므로 매칭이 일어나지 않음
	assert.Empty(t, sender.framesOfType(models.FrameMatchFound))
	assert.Equal(t, []string{"alice"}, queue.Waiting())
}

func TestQueueService_Remove(t *testing.T) {
	sender := newFakeSender("alice", "bob")
	queue, _ := newTestQueue(sender)

	queue.Enqueue("alice")
	queue.Remove("alice")
	queue.Remove("alice") // 중복 제거는 무시

	queue.Enqueue("bob")
	assert.Empty(t, sender.framesOfType(models.FrameMatchFound))
	assert.Equal(t, []string{"bob"}, queue.Waiting())
}

func TestQueueService_IgnoresUserInActiveMatch(t *testing.T) {
	sender := newFakeSender("alice", "bob", "carol")
	queue, matchService := newTestQueue(sender)

	matchService.CreateMatch("alice", "bob")

	queue.Enqueue("alice")
	assert.Empty(t, queue.Waiting())

	queue.Enqueue("carol")
	assert.Equal(t, []string{"carol"}, queue.Waiting())
}
