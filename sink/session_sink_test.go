package sink_test

import (
	"chat-relay/domain/event"
	"chat-relay/sink"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionSink_Consume(t *testing.T) {
	req := require.New(t)
	s := sink.NewSessionSink(2)

	notice := event.SystemNotice{User: "시스템", Msg: "Alice님이 입장하셨습니다."}
	req.NoError(s.Consume(context.Background(), notice))

	select {
	case e := <-s.Events:
		req.Equal(notice, e)
	case <-time.After(100 * time.Millisecond):
		req.Fail("Event did not reach the channel")
	}
}

func TestSessionSink_FullBufferDropsImmediately(t *testing.T) {
	req := require.New(t)
	s := sink.NewSessionSink(1)

	delivery := event.ChatDelivery{User: "Alice", Msg: "hello"}
	req.NoError(s.Consume(context.Background(), delivery))

	// Second write finds the buffer full and must not block
	start := time.Now()
	err := s.Consume(context.Background(), delivery)
	req.ErrorIs(err, sink.ErrSinkFull)
	req.Less(time.Since(start), 50*time.Millisecond)
}

func TestSessionSink_CanceledContext(t *testing.T) {
	req := require.New(t)
	s := sink.NewSessionSink(1)
	req.NoError(s.Consume(context.Background(), event.ChatDelivery{User: "Alice", Msg: "hi"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Consume(ctx, event.ChatDelivery{User: "Alice", Msg: "again"})
	req.Error(err)
}
