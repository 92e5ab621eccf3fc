package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsetTracker commits a partition only up to the newest message whose
// predecessors, in fetch order, have all completed. Workers finish out of
// order; the group offset never moves past an unfinished message or backwards.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	// commitMu serializes commits so a lower offset never lands after a
	// higher one.
	commitMu sync.Mutex
	pending  []int64
	msgs     map[int64]kafka.Message
	done     map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

func (t *offsetTracker) partition(p int) *partitionOffsets {
	po, ok := t.partitions[p]
	if !ok {
		po = &partitionOffsets{
			msgs: make(map[int64]kafka.Message),
			done: make(map[int64]bool),
		}
		t.partitions[p] = po
	}
	return po
}

// Track records m as fetched. Messages must be tracked in fetch order.
func (t *offsetTracker) Track(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	po := t.partition(m.Partition)
	po.pending = append(po.pending, m.Offset)
	po.msgs[m.Offset] = m
}

// Complete marks m finished and, if that extends the finished prefix of its
// partition, commits the last message of that prefix through commit.
func (t *offsetTracker) Complete(ctx context.Context, m kafka.Message, commit func(context.Context, kafka.Message) error) error {
	t.mu.Lock()
	po := t.partition(m.Partition)
	t.mu.Unlock()

	po.commitMu.Lock()
	defer po.commitMu.Unlock()

	t.mu.Lock()
	po.done[m.Offset] = true
	var (
		last  kafka.Message
		ready bool
	)
	for len(po.pending) > 0 && po.done[po.pending[0]] {
		off := po.pending[0]
		last, ready = po.msgs[off], true
		po.pending = po.pending[1:]
		delete(po.msgs, off)
		delete(po.done, off)
	}
	t.mu.Unlock()

	if !ready {
		return nil
	}
	return commit(ctx, last)
}
