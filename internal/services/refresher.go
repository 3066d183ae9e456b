package services

import (
	"github.com/robfig/cron/v3"

	"market-client/pkg/logger"
)

// Refresher periodically re-issues the bootstrap fetches so long-idle mirrors
// cannot drift from missed pushes. An empty spec disables it.
type Refresher struct {
	cron       *cron.Cron
	dispatcher *Dispatcher
	spec       string
	log        logger.Logger
}

func NewRefresher(spec string, dispatcher *Dispatcher, log logger.Logger) *Refresher {
	return &Refresher{
		cron:       cron.New(),
		dispatcher: dispatcher,
		spec:       spec,
		log:        log,
	}
}

func (r *Refresher) Start() error {
	if r.spec == "" {
		return nil
	}

	r.log.Info("Starting mirror refresher", "spec", r.spec)
	_, err := r.cron.AddFunc(r.spec, func() {
		if err := r.dispatcher.Refresh(); err != nil {
			r.log.Warn("Periodic refresh failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

func (r *Refresher) Stop() {
	r.cron.Stop()
}
