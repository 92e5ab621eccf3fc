package handler

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/rs/zerolog"
)

// Banner is the fixed line written before every event.
const Banner = "cloud storage event"

// StorageAlert logs every cloud storage event it is handed. It keeps no
// state between invocations and never fails.
type StorageAlert struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *StorageAlert {
	return &StorageAlert{log: log}
}

// HandleEvent writes two lines: the banner, then the event itself. Both are
// emitted without a level so the configured minimum level cannot drop them.
// An event that cannot be marshaled still yields the second line, holding the
// marshaling error in place of the event.
func (h *StorageAlert) HandleEvent(ctx context.Context, e event.Event) error {
	h.log.Log().Msg(Banner)
	h.log.Log().Interface("event", e).Send()
	return nil
}
