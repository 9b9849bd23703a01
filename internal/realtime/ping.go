package realtime

// Ping is a keepalive ping from client
type Ping struct {
}

func (msg *Ping) GetType() string {
	return "ping"
}

func (msg *Ping) Process(ctx *MessageContext) error {
	// Respond with pong
	return ctx.Conn.WriteJSON(map[string]string{
		"type": "pong",
	})
}

// Pong is a pong response (in case client wants to track latency)
type Pong struct {
}

func (msg *Pong) GetType() string {
	return "pong"
}

func (msg *Pong) Process(ctx *MessageContext) error {
	// No-op - just acknowledge
	return nil
}
