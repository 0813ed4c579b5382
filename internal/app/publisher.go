package app

import (
	"context"
	"log/slog"

	"climate-server/internal/config"
	"climate-server/internal/modules/climate/service"
	"climate-server/internal/mqtt"
)

// announcer is the part of *mqtt.Publisher the server lifecycle needs.
type announcer interface {
	Disconnect()
}

type noopAnnouncer struct{}

func (noopAnnouncer) Disconnect() {}

// startPublisher connects to the broker in the background and announces the
// dataset summary. The returned channel closes once the background work has
// finished; a broker that is down never delays HTTP serving.
func startPublisher(ctx context.Context, cfg config.Config, svc *service.Service) (announcer, <-chan struct{}, error) {
	done := make(chan struct{})
	if !cfg.MQTTEnabled() {
		close(done)
		return noopAnnouncer{}, done, nil
	}

	publisher, err := mqtt.NewPublisher(cfg, slog.Default())
	if err != nil {
		close(done)
		return nil, nil, err
	}

	go func() {
		defer close(done)

		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
			return
		}

		summary, err := svc.DatasetSummary(ctx)
		if err != nil {
			slog.Warn("dataset summary failed", "error", err)
			return
		}
		if err := publisher.AnnounceDataset(summary); err != nil {
			slog.Warn("dataset announcement failed", "error", err)
		}
	}()

	return publisher, done, nil
}
