package broker

import "context"

type publication[TID comparable, TPayload any] struct {
	id      TID
	channel chan TPayload
}

type subscription[TID comparable, TPayload any] struct {
	id      TID
	channel chan chan TPayload
}

// ChannelBroker passes a channel with ID from producer to the first consumer.
// The subsequent consumers block until the producer is finished so that they
// can resolve the situation e.g. by fetching the persisted answer from the database.
//
// The producer of a streamed NPC answer is a goroutine spawned by the HTTP POST that asks the question.
// The first consumer is the HTTP handler that returns the SSE stream. Subsequent consumers are likely
// caused by connectivity issues and get the complete answer once the producer has stored it.
type ChannelBroker[TID comparable, TPayload any] struct {
	done        chan struct{}
	publishes   chan publication[TID, TPayload]
	unpublishes chan TID
	subscribes  chan subscription[TID, TPayload]
}

// NewChannelBroker creates a new ChannelBroker. Run it with Start.
func NewChannelBroker[TID comparable, TPayload any]() *ChannelBroker[TID, TPayload] {
	return &ChannelBroker[TID, TPayload]{
		done:        make(chan struct{}),
		publishes:   make(chan publication[TID, TPayload]),
		unpublishes: make(chan TID),
		subscribes:  make(chan subscription[TID, TPayload]),
	}
}

// Start handles publish, unpublish, and subscribe events until ctx is done. It blocks, so call it in a goroutine.
//
// Waiting subscribers are released when Start returns.
func (b *ChannelBroker[TID, TPayload]) Start(ctx context.Context) {
	published := map[TID]chan TPayload{}
	// waiting holds the subscribers that arrived after the first one.
	waiting := map[TID][]chan chan TPayload{}
	consumed := map[TID]bool{}
	defer func() {
		close(b.done)
		for _, subscribers := range waiting {
			for _, s := range subscribers {
				close(s)
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return

		case s := <-b.subscribes:
			c, ok := published[s.id]
			switch {
			case !ok:
				// The producer is finished or hasn't started yet.
				close(s.channel)
			case !consumed[s.id]:
				consumed[s.id] = true
				s.channel <- c
			default:
				waiting[s.id] = append(waiting[s.id], s.channel)
			}

		case p := <-b.publishes:
			published[p.id] = p.channel
			delete(consumed, p.id)

		case id := <-b.unpublishes:
			for _, s := range waiting[id] {
				close(s)
			}
			delete(published, id)
			delete(waiting, id)
			delete(consumed, id)
		}
	}
}

// Subscribe to the channel with ID. The returned channel receives the producer's channel if this is the first
// subscriber. Otherwise, it's closed once the producer unpublishes, or immediately if nothing is published.
func (b *ChannelBroker[TID, TPayload]) Subscribe(id TID) <-chan chan TPayload {
	channel := make(chan chan TPayload, 1)
	select {
	case b.subscribes <- subscription[TID, TPayload]{id: id, channel: channel}:
	case <-b.done:
		close(channel)
	}
	return channel
}

// Publish the channel with ID. The channel is handed to the first subscriber.
func (b *ChannelBroker[TID, TPayload]) Publish(id TID, channel chan TPayload) {
	select {
	case b.publishes <- publication[TID, TPayload]{id: id, channel: channel}:
	case <-b.done:
	}
}

// Unpublish the channel with ID and release the waiting subscribers.
//
// Subscribers arriving after this don't get the channel. The suggested way to get around this is an unbuffered
// channel that blocks the producer until it gets a consumer. If the consumers are unreliable, the producer should
// have a timeout to not block forever.
func (b *ChannelBroker[TID, TPayload]) Unpublish(id TID) {
	select {
	case b.unpublishes <- id:
	case <-b.done:
	}
}
