package browser

import (
	"github.com/entrhq/lookout/pkg/browser/bridge"
)

// HandleResult accepts an envelope posted by the page. Automatic load
// snapshots are folded into the session; every envelope is then offered to
// the correlator, which keeps it only if it answers the pending command.
// It reports whether a waiting command will receive env.
func (b *Browser) HandleResult(env bridge.Envelope) bool {
	if env.Action == bridge.ActionAuto {
		var content PageContent
		if err := env.DecodeData(&content); err != nil {
			b.logger.Debugf("ignoring malformed page snapshot: %v", err)
		} else if content.Error == "" {
			b.fold(content, true)
		}
	}

	if !b.IsOpen() {
		return false
	}
	accepted := b.corr.Deliver(env)
	if !accepted {
		b.logger.Debugf("dropped stale %s result (id %q)", env.Action, env.ID)
	}
	return accepted
}
