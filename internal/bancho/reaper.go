package bancho

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper logs out idle sessions and reclaims broadcast storage on the
// configured cadences. One long-lived goroutine per State.
type Reaper struct {
	state *State
	log   *zap.Logger
}

func NewReaper(state *State) *Reaper {
	return &Reaper{state: state, log: state.Log.Named("reaper")}
}

// Run blocks until ctx is cancelled. Timers are dropped on the way out.
func (r *Reaper) Run(ctx context.Context) {
	cfg := r.state.Cfg
	sweep := time.NewTicker(cfg.Session.RecycleInterval)
	notifyGC := time.NewTicker(cfg.Messages.NotifyRecycleInterval)
	channelGC := time.NewTicker(cfg.Messages.ChannelRecycleInterval)
	defer sweep.Stop()
	defer notifyGC.Stop()
	defer channelGC.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			r.SweepOnce()
		case <-notifyGC.C:
			if n := r.state.Notify.RemoveInvalid(); n > 0 {
				r.log.Debug("expired bus messages reclaimed", zap.Int("count", n))
			}
		case <-channelGC.C:
			r.state.Channels.GCAll()
		}
	}
}

// SweepOnce logs out every session idle past the timeout, then advances
// the broadcast-bus watermark to the minimum cursor of the survivors.
func (r *Reaper) SweepOnce() {
	timeout := int64(r.state.Cfg.Session.Timeout / time.Second)
	now := time.Now().Unix()

	reaped := 0
	for _, s := range r.state.Store.Snapshot() {
		if now-s.LastActive() > timeout {
			r.state.Logout(s)
			reaped++
		}
	}
	if reaped > 0 {
		r.log.Info("idle sessions reaped", zap.Int("count", reaped))
		if r.state.Metrics != nil {
			r.state.Metrics.ReapedSessions.Add(float64(reaped))
		}
	}

	if min, ok := r.state.Store.MinBusCursor(); ok {
		r.state.Notify.RemoveBefore(min)
	}
	if r.state.Metrics != nil {
		r.state.Metrics.BusMessages.Set(float64(r.state.Notify.Len()))
	}
}
