package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper drops resolved marketplace listings past their retention.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Janitor runs a Sweeper on a cron schedule.
type Janitor struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewJanitor(spec string, s Sweeper, log *zap.Logger) (*Janitor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	j := &Janitor{cron: c, log: log}
	if _, err := c.AddFunc(spec, func() {
		if n := s.Sweep(time.Now().UTC()); n > 0 {
			log.Info("marketplace swept", zap.Int("listings", n))
		}
	}); err != nil {
		return nil, err
	}
	return j, nil
}

// Run blocks until ctx is done, then waits for a running sweep to finish.
func (j *Janitor) Run(ctx context.Context) error {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
	return nil
}
