package finding

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedEvent is returned when an event cannot be decoded into a
// notification. Redelivering such an event will not help.
var ErrMalformedEvent = errors.New("malformed event")

// Envelope is the Pub/Sub push request body.
type Envelope struct {
	Message      Message `json:"message"`
	Subscription string  `json:"subscription,omitempty"`
}

// Message is the Pub/Sub message inside an Envelope. Data holds the
// base64-encoded notification.
type Message struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Notification is the decoded payload published by Security Command Center.
type Notification struct {
	Finding Finding `json:"finding"`
}

// DecodeEnvelope parses a push request body.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope: %v", ErrMalformedEvent, err)
	}
	if env.Message.Data == "" {
		return Envelope{}, fmt.Errorf("%w: envelope has no message.data", ErrMalformedEvent)
	}
	return env, nil
}

// DecodeData turns base64 message data into the raw notification JSON.
func DecodeData(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: message data: %v", ErrMalformedEvent, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: message data is not valid UTF-8", ErrMalformedEvent)
	}
	return raw, nil
}

// DecodeNotification parses notification JSON. A payload without a
// finding yields the zero Finding.
func DecodeNotification(payload []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: notification: %v", ErrMalformedEvent, err)
	}
	return n, nil
}

// EncodeData is the inverse of DecodeData. Publishers and tests use it to
// build message data from a notification.
func EncodeData(n Notification) (string, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
