package publish

import (
	"context"

	"github.com/rs/zerolog"

	"signalforge/internal/models"
)

// LogDelivery writes content to the log instead of a real transport. Used
// when no Telegram credentials are configured, so dry runs still show what
// each tier would have received.
type LogDelivery struct {
	log zerolog.Logger
}

func NewLogDelivery(log zerolog.Logger) *LogDelivery {
	return &LogDelivery{log: log}
}

func (d *LogDelivery) Send(_ context.Context, tier models.Tier, content string) error {
	d.log.Info().Str("tier", string(tier)).Str("content", content).Msg("dry-run delivery")
	return nil
}
