//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"securetransfer/internal/audit"
	"securetransfer/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	store    *audit.KafkaStore
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())

	var err error
	s.store, err = audit.NewKafkaStore([]string{s.redpanda.Broker}, "audit-it")
	s.Require().NoError(err)
	s.Require().NoError(s.store.EnsureTopic(context.Background(), 1, 1))
}

func (s *KafkaStoreSuite) TearDownSuite() {
	s.store.Close()
}

func (s *KafkaStoreSuite) TestEnsureTopicIsIdempotent() {
	s.Require().NoError(s.store.EnsureTopic(context.Background(), 1, 1))
}

func (s *KafkaStoreSuite) TestAppendPublishesJSONRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := audit.Event{
		Category:   audit.CategorySecurity,
		Severity:   audit.SeverityCritical,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		TransferID: "transfer-kafka-1",
		Subject:    "alice",
		Action:     string(audit.EventReplayDetected),
		Kind:       "ReplayDetected",
	}
	s.Require().NoError(s.store.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(s.store.Topic()),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	for {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		var found *audit.Event
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) != event.TransferID {
				return
			}
			var got audit.Event
			s.Require().NoError(json.Unmarshal(r.Value, &got))
			found = &got
		})
		if found != nil {
			s.Equal(event.Action, found.Action)
			s.Equal(event.Category, found.Category)
			s.True(event.Timestamp.Equal(found.Timestamp))
			return
		}
	}
}
