package relay

import (
	"errors"

	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/logging"
)

// BroadcastResult summarizes one fan-out.
type BroadcastResult struct {
	Attempted int
	Failed    int
}

// Broadcast sends payload, unmodified and with its original frame type, to
// every connection in the registry, the sender included. Each send is
// independent: a failing recipient is logged and counted, and delivery to
// the rest continues. Nothing is reported back to the sender.
func Broadcast(reg *Registry, messageType int, payload []byte) BroadcastResult {
	return Multicast(reg.Snapshot(), messageType, payload)
}

// Multicast is Broadcast over an explicit recipient list, for forwarding
// policies that pick their own audience.
func Multicast(recipients []*Conn, messageType int, payload []byte) BroadcastResult {
	var res BroadcastResult
	for _, c := range recipients {
		res.Attempted++
		if err := c.Send(messageType, payload); err != nil {
			res.Failed++
			if !errors.Is(err, ErrConnClosed) {
				logging.Debug("Broadcast send failed",
					zap.String("remote_addr", c.RemoteAddr()),
					zap.String("conn_id", c.ID()),
					zap.Error(err),
				)
			}
		}
	}
	return res
}

// Except returns the registry members other than c, for sender-excluding
// policies.
func Except(reg *Registry, c *Conn) []*Conn {
	all := reg.Snapshot()
	out := all[:0]
	for _, other := range all {
		if other != c {
			out = append(out, other)
		}
	}
	return out
}
