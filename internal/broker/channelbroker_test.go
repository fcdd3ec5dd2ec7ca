package broker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/myrjola/casefile/internal/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamKey struct {
	caseID string
	npcID  string
}

func TestChannelBroker(t *testing.T) {
	key := streamKey{caseID: "rue-morgue", npcID: "le-bon"}
	type testCase struct {
		name     string
		testFunc func(t *testing.T, b *broker.ChannelBroker[streamKey, string])
	}
	tests := []testCase{
		{
			name: "subscriber receives content",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[streamKey, string]) {
				channel := make(chan string)
				b.Publish(key, channel)
				go func() {
					channel <- "hello"
					close(channel)
					b.Unpublish(key)
				}()
				subscriptionChan := <-b.Subscribe(key)
				require.Equal(t, "hello", <-subscriptionChan, "subscriber did not receive content")
				msg, ok := <-subscriptionChan
				require.Empty(t, msg, "subscriber received content after producer closed")
				require.Falsef(t, ok, "channel not closed")
			},
		},
		{
			name: "unknown id closes subscription",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[streamKey, string]) {
				c, ok := <-b.Subscribe(streamKey{caseID: "rue-morgue", npcID: "sailor"})
				require.Nil(t, c)
				require.False(t, ok)
			},
		},
		{
			name: "subsequent subscribers block until producer is finished or unpublished",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[streamKey, string]) {
				channel := make(chan string)
				b.Publish(key, channel)
				producerFinished := atomic.Bool{}

				// First subscriber
				subscriptionChan := <-b.Subscribe(key)

				// Next subscriber
				nextDone := make(chan struct{})
				go func() {
					defer close(nextDone)
					nextSubscriptionChan, ok := <-b.Subscribe(key)
					assert.Nil(t, nextSubscriptionChan, "subsequent subscriber received content")
					assert.Falsef(t, ok, "channel not closed to signal producer is finished")
					assert.True(t, producerFinished.Load(), "producer not finished before subsequent subscriber unblocked")
				}()

				// Finish producer
				go func() {
					channel <- "hello"
					close(channel)
					producerFinished.Store(true)
					b.Unpublish(key)
				}()
				require.Equal(t, "hello", <-subscriptionChan, "subscriber did not receive content")

				// Last subscriber
				nextSubscriptionChan, ok := <-b.Subscribe(key)
				require.Nil(t, nextSubscriptionChan, "last subscriber received content")
				require.Falsef(t, ok, "last subscriber channel not closed to signal producer is finished")
				require.True(t, producerFinished.Load(), "producer not finished before last subscriber unblocked")
				<-nextDone
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			br := broker.NewChannelBroker[streamKey, string]()
			go br.Start(ctx)
			t.Cleanup(cancel)
			tt.testFunc(t, br)
		})
	}
}

func TestChannelBroker_stop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	br := broker.NewChannelBroker[string, string]()
	stopped := make(chan struct{})
	go func() {
		br.Start(ctx)
		close(stopped)
	}()

	br.Publish("id", make(chan string))
	<-br.Subscribe("id")
	waiting := br.Subscribe("id")

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("broker did not stop")
	}
	_, ok := <-waiting
	require.False(t, ok, "waiting subscriber is released on stop")

	_, ok = <-br.Subscribe("id")
	require.False(t, ok, "subscribing to a stopped broker doesn't block")
	br.Publish("id", make(chan string))
	br.Unpublish("id")
}
