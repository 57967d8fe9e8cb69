package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_ProcessesQueuedReplies(t *testing.T) {
	queue := NewMemoryQueue(8)
	llm := &stubLLM{resp: LLMResponse{Text: "Happy to help."}}
	svc, store := newTestService(llm, WithEnqueuer(NewPublisher(queue, nil)))

	worker := NewWorker(svc, queue, nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	defer func() {
		cancel()
		worker.Wait()
	}()

	_, err := svc.SendMessage(context.Background(), "u1", "hello", &Context{Type: ContextGeneral})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		thread, _ := store.List(context.Background(), "u1")
		return len(thread) == 2
	}, 2*time.Second, 10*time.Millisecond)

	thread, _ := store.List(context.Background(), "u1")
	assert.Equal(t, "hello", thread[0].Message)
	assert.Equal(t, "Happy to help.", thread[1].Message)
	assert.Equal(t, ContextGeneral, TypeOf(thread[1].Context))
}

type failingReplier struct{ calls int }

func (f *failingReplier) GenerateResponse(ctx context.Context, userID, text string, c *Context) (*Message, error) {
	f.calls++
	return nil, errors.New("store down")
}

type deleteTrackingQueue struct {
	*MemoryQueue
	deleted []string
}

func (q *deleteTrackingQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func TestWorker_HandleMessage(t *testing.T) {
	queue := &deleteTrackingQueue{MemoryQueue: NewMemoryQueue(1)}
	replier := &failingReplier{}
	worker := NewWorker(replier, queue, nil)

	worker.handleMessage(context.Background(), queueMessage{ID: "1", Body: "not json", ReceiptHandle: "r1"})
	assert.Equal(t, []string{"r1"}, queue.deleted)
	assert.Zero(t, replier.calls)

	worker.handleMessage(context.Background(), queueMessage{ID: "2", Body: `{"userId":"u1","message":"hi"}`, ReceiptHandle: "r2"})
	assert.Equal(t, 1, replier.calls)
	assert.Equal(t, []string{"r1"}, queue.deleted, "failed jobs stay queued")
}

func TestMemoryQueue_ReceiveTimesOut(t *testing.T) {
	queue := NewMemoryQueue(2)
	msgs, err := queue.Receive(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, queue.Send(context.Background(), "a"))
	require.NoError(t, queue.Send(context.Background(), "b"))
	msgs, err = queue.Receive(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Body)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = queue.Receive(ctx, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
