package stream

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher fans a change event out to every affected user's channel.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishInsert notifies recipients that a message landed in a conversation.
// Delivery is best effort: a publish failure is logged, not surfaced, because
// subscribers recover via baseline recomputation.
func (p *Publisher) PublishInsert(ctx context.Context, userIDs []uint, conversationID, messageID, senderID uint, createdAt time.Time) {
	p.publish(ctx, userIDs, Event{
		Kind:           KindInsert,
		ConversationID: conversationID,
		MessageID:      messageID,
		SenderID:       senderID,
		CreatedAt:      createdAt,
	})
}

// PublishMembershipUpdate notifies a user's other sessions that their read
// watermark for a conversation advanced.
func (p *Publisher) PublishMembershipUpdate(ctx context.Context, userID uint, conversationID uint, lastReadAt time.Time) {
	p.publish(ctx, []uint{userID}, Event{
		Kind:           KindMembershipUpdate,
		ConversationID: conversationID,
		LastReadAt:     &lastReadAt,
	})
}

func (p *Publisher) publish(ctx context.Context, userIDs []uint, ev Event) {
	if p == nil || p.client == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("stream: marshal %s event: %v", ev.Kind, err)
		return
	}
	for _, userID := range userIDs {
		if err := p.client.Publish(ctx, userChannel(userID), payload).Err(); err != nil {
			log.Printf("stream: publish %s to user %d: %v", ev.Kind, userID, err)
		}
	}
}
