package kafka

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/IBM/sarama"

	"github.com/user/secmon/pkg/finding"
)

// claimHandler implements sarama.ConsumerGroupHandler.
type claimHandler struct {
	handler  NotificationHandler
	clientID string
	logger   *slog.Logger
	failed   atomic.Bool
}

func (h *claimHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info("consumer group session setup",
		"client_id", h.clientID,
		"generation_id", sess.GenerationID(),
		"member_id", sess.MemberID(),
	)
	return nil
}

func (h *claimHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info("consumer group session cleanup",
		"client_id", h.clientID,
		"generation_id", sess.GenerationID(),
		"member_id", sess.MemberID(),
	)
	return nil
}

// ConsumeClaim marks a message once it is handled or found to be
// undecodable. Any other failure returns without marking, which ends the
// session and leaves the message to be consumed again.
func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	h.logger.Info("starting to consume from partition",
		"client_id", h.clientID,
		"topic", claim.Topic(),
		"partition", claim.Partition(),
		"member_id", sess.MemberID(),
	)

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			err := h.handler.HandleNotification(sess.Context(), msg.Value)
			switch {
			case err == nil:
				sess.MarkMessage(msg, "")
			case errors.Is(err, finding.ErrMalformedEvent):
				h.logger.Warn("dropping undecodable message",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
				sess.MarkMessage(msg, "")
			default:
				h.failed.Store(true)
				return fmt.Errorf("message %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
			}
		case <-sess.Context().Done():
			return nil
		}
	}
}

// takeFailure reports whether a message failed since the last call.
func (h *claimHandler) takeFailure() bool {
	return h.failed.Swap(false)
}
