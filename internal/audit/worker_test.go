package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type WorkerSuite struct {
	suite.Suite
	store  *InMemoryStore
	inbox  chan Event
	logger *slog.Logger
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.inbox = make(chan Event, 8)
	s.logger = slog.New(slog.DiscardHandler)
}

func (s *WorkerSuite) TestPersistsPublishedEvents() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewWorker(s.store, s.inbox, s.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	publisher := NewPublisher(s.inbox, s.logger)
	publisher.Emit(ctx, Event{Action: ActionBadgeAwarded, AppID: "app-1", TransactionID: "app-1tok"})
	publisher.Emit(ctx, Event{Action: ActionTransactionRefused, AppID: "app-2"})

	s.Require().Eventually(func() bool {
		events, err := s.store.ListByApp(context.Background(), "app-1")
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := s.store.ListByApp(context.Background(), "app-1")
	s.Require().NoError(err)
	s.Equal(ActionBadgeAwarded, events[0].Action)
	s.False(events[0].Timestamp.IsZero())

	cancel()
	<-done
}

func (s *WorkerSuite) TestFullInboxDropsInsteadOfBlocking() {
	inbox := make(chan Event) // unbuffered, no consumer
	publisher := NewPublisher(inbox, s.logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		publisher.Emit(context.Background(), Event{Action: ActionEmailSubmitted})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("publisher blocked on a full inbox")
	}
}
