package lifecycle

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var errReportedOffline = errors.New("connectivity lost")

// SetOnline feeds an external connectivity signal into the loop. Going
// offline this way holds until SetOnline(true): the periodic store ping does
// not override it. Coming online replays the offline queue before any later
// command runs.
func (c *Controller) SetOnline(online bool) {
	c.post(func(ctx context.Context) {
		c.held = !online
		switch {
		case online && !c.online:
			c.goOnline(ctx)
		case !online && c.online:
			c.goOffline(errReportedOffline)
			c.publish()
		}
	})
}

func (c *Controller) ping(ctx context.Context) {
	if err := c.store.Ping(ctx); err != nil {
		c.logger.Debug("store still unreachable", zap.Error(err))
		return
	}
	c.goOnline(ctx)
}

// goOnline loads state on first contact, then replays queued writes and
// flushes shift totals. Any transport failure on the way drops back offline.
func (c *Controller) goOnline(ctx context.Context) {
	if !c.loaded {
		if err := c.load(ctx); err != nil {
			c.logger.Warn("initial load failed, staying offline", zap.Error(err))
			c.publish()
			return
		}
		c.loaded = true
	}

	c.online = true
	c.logger.Info("store reachable, terminal online", zap.Int("pending", c.pending))
	c.notify(Outcome{Kind: OutcomeOnline})

	c.replay(ctx)
	c.flushLedger(ctx)
	c.publish()
}

func (c *Controller) goOffline(cause error) {
	if !c.online {
		return
	}
	c.online = false
	c.logger.Warn("store unreachable, terminal offline", zap.Error(cause))
	c.notify(Outcome{Kind: OutcomeOffline, Err: cause})
}

// replay sends queued writes to the store. Acknowledged records replace the
// optimistic copies; refused ones are refreshed from the store and reported.
func (c *Controller) replay(ctx context.Context) {
	if c.pending == 0 {
		return
	}

	res, err := c.buffer.Replay(ctx, c.store)
	if err != nil {
		c.logger.Error("replay offline queue", zap.Error(err))
	}
	for _, rec := range res.Synced {
		c.adopt(rec)
		c.settleAccrual(rec.ID, true)
	}
	for _, conflict := range res.Conflicts {
		id := conflict.Mutation.OrderID
		c.refresh(ctx, id)
		c.settleAccrual(id, false)
		c.notify(Outcome{Kind: OutcomeConflict, OrderID: id, Err: conflict.Err})
	}
	if res.Remaining > 0 {
		c.goOffline(errors.New("replay interrupted"))
	}

	if n, err := c.buffer.Len(ctx); err != nil {
		c.logger.Error("read offline queue depth", zap.Error(err))
	} else {
		c.pending = n
	}
	if len(res.Synced) > 0 || len(res.Conflicts) > 0 {
		c.notify(Outcome{Kind: OutcomeSynced, Synced: len(res.Synced)})
	}
}
