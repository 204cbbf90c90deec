// Package relay implements the fanout WebSocket relay.
//
// A Server owns one HTTP listener. Plain HTTP requests are answered with
// 426 Upgrade Required. Upgrade requests go through Handlers.VerifyClient
// before anything is written back; a denied request has its socket reset
// with no response at all, so a client without the token learns nothing.
// Admitted requests are upgraded with gorilla/websocket and become a Conn.
//
// # Connection Lifecycle
//
//	Pending ──VerifyClient false──▶ Terminated (socket reset, never registered)
//	   │
//	   ▼ upgrade
//	 Open ──read error / close frame / Shutdown──▶ Closed
//
// On admission the Conn joins the Registry and a Monitor starts pinging it
// every Config.PingInterval (30s by default). On close, in this order: the
// monitor is stopped, the Conn leaves the Registry, the socket is closed,
// and Handlers.OnClose runs.
//
// # Broadcast
//
// The relay never forwards on its own. Handlers.OnMessage decides; the
// stock BroadcastHandlers calls Broadcast, which sends the frame unchanged
// to every registered connection, the sender included. Each recipient is
// independent: a failed send is logged and counted and the fan-out goes on.
//
// # Usage Example
//
//	cfg := config.Default()
//	cfg.Token = "secret123"
//
//	srv, err := relay.New(cfg, relay.NewBroadcastHandlers(cfg.Token),
//	    relay.WithMetrics(metrics.New("fanout")))
//	if err != nil {
//	    return err
//	}
//	return srv.ListenAndServe(ctx)
//
// # Thread Safety
//
// Each connection runs on its own goroutine (plus one for its monitor), so
// the Registry is mutex-guarded. Data frames to one Conn are serialized by
// the Conn; a Conn that has left the Open state refuses further sends.
package relay
