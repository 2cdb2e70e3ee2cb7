package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// SurveyEventPublisher publishes survey events to RabbitMQ.
type SurveyEventPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

func NewSurveyEventPublisher(conn *RabbitMQConnection) *SurveyEventPublisher {
	return &SurveyEventPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// PublishSessionCompleted announces a submitted session and its report.
func (p *SurveyEventPublisher) PublishSessionCompleted(ctx context.Context, farmID uuid.UUID, userID string, sessionUUID, reportID uuid.UUID) error {
	return p.publish(ctx, SurveyEvent{
		EventType:   EventSessionCompleted,
		OccurredAt:  time.Now(),
		FarmID:      farmID,
		UserID:      userID,
		SessionUUID: &sessionUUID,
		ReportID:    &reportID,
	})
}

// PublishPhotoFlagged announces a flagged upload for later review.
func (p *SurveyEventPublisher) PublishPhotoFlagged(ctx context.Context, farmID uuid.UUID, userID string, imageID uuid.UUID, reason string) error {
	return p.publish(ctx, SurveyEvent{
		EventType:  EventPhotoFlagged,
		OccurredAt: time.Now(),
		FarmID:     farmID,
		UserID:     userID,
		ImageID:    &imageID,
		Reason:     reason,
	})
}

func (p *SurveyEventPublisher) publish(ctx context.Context, event SurveyEvent) error {
	_, err := p.conn.Channel.QueueDeclare(
		SurveyEventsQueue, // queue name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal survey event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",                // exchange
		SurveyEventsQueue, // routing key (queue name)
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish survey event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()
	return nil
}
