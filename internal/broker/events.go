package appkafka

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// EventType names a post lifecycle transition.
type EventType string

const (
	PostCreated EventType = "post_created"
	PostUpdated EventType = "post_updated"
	PostDeleted EventType = "post_deleted"
)

// PostEvent is published after a post mutation has been committed.
type PostEvent struct {
	Type     EventType `json:"type"`
	PostID   int64     `json:"post_id"`
	AuthorID int64     `json:"author_id"`
	Title    string    `json:"title,omitempty"`
	At       time.Time `json:"at"`
}

// TypeHeader carries the event type so consumers can filter without decoding.
const TypeHeader = "event-type"

// Message encodes the event as a Kafka message keyed by post id.
func (e PostEvent) Message() (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal post event: %w", err)
	}
	return kafka.Message{
		Key:     []byte(strconv.FormatInt(e.PostID, 10)),
		Value:   data,
		Headers: []kafka.Header{{Key: TypeHeader, Value: []byte(e.Type)}},
	}, nil
}

// MessageType returns the event type header of msg, or "" when it has none.
func MessageType(msg kafka.Message) EventType {
	for _, h := range msg.Headers {
		if h.Key == TypeHeader {
			return EventType(h.Value)
		}
	}
	return ""
}

// DecodePostEvent decodes a message value produced by PostEvent.Message.
func DecodePostEvent(data []byte) (PostEvent, error) {
	var e PostEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return PostEvent{}, fmt.Errorf("decode post event: %w", err)
	}
	if e.Type == "" || e.PostID == 0 {
		return PostEvent{}, fmt.Errorf("decode post event: missing type or post id")
	}
	return e, nil
}

// Publish writes a single post event.
func Publish(w KafkaWriter, e PostEvent) error {
	msg, err := e.Message()
	if err != nil {
		return err
	}
	return w.WriteMessages(msg)
}
