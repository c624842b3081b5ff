package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// errPoison marks messages that can never be processed and must not be redelivered.
var errPoison = errors.New("poison message")

// IsPoison reports whether err came from a message that should be dropped.
func IsPoison(err error) bool {
	return errors.Is(err, errPoison)
}

// MessageHandler decodes audit messages and stores them.
type MessageHandler struct {
	store  Recorder
	logger zerolog.Logger
}

// NewMessageHandler creates a handler that stores decoded records in store.
func NewMessageHandler(store Recorder, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{store: store, logger: logger}
}

// Handle decodes one message. Messages of other event types are skipped.
func (h *MessageHandler) Handle(ctx context.Context, event string, data []byte) error {
	if event != "" && event != EventType {
		h.logger.Warn().Str("event", event).Msg("unknown audit event type")
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	if rec.ID == "" || rec.UserID == "" {
		return fmt.Errorf("%w: record without id or user", errPoison)
	}

	start := time.Now()
	if err := h.store.Record(ctx, rec); err != nil {
		return err
	}

	h.logger.Debug().
		Str("audit_id", rec.ID).
		Str("user_id", rec.UserID).
		Dur("duration", time.Since(start)).
		Msg("audit record stored")
	return nil
}
