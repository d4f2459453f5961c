////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package push maintains the websocket connection to the per-user private
// channel and fans inbound events out to registered listeners. It implements
// [messaging.PushBus]. The connection self-heals: a broken socket is redialed
// with capped exponential backoff, and IsConnected reports false the whole
// time so the messaging layer falls back to polling.
package push

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/stoppable"
)

const (
	// writeWait bounds each outbound control write.
	writeWait = 10 * time.Second

	// pongWait is how long the read side waits for a pong before treating
	// the connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 1 << 16

	listenStoppableName = "PushListenThread"
)

// Error messages.
const (
	emptyURLErr       = "push channel URL cannot be empty"
	alreadyStartedErr = "push channel is already started"
)

// Params configures a Channel.
type Params struct {
	// URL is the websocket endpoint of the per-user channel, e.g.
	// "wss://platform.example.com/ws".
	URL string

	// AuthToken is the bearer token presented during the handshake.
	AuthToken string

	// LocalUserID scopes inbound direct messages to their conversation.
	LocalUserID int64

	HandshakeTimeout time.Duration

	// ReconnectBaseDelay and ReconnectMaxDelay bound the redial backoff.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// GetDefaultParams returns a Params with default timeouts. URL, AuthToken,
// and LocalUserID must still be filled in.
func GetDefaultParams() Params {
	return Params{
		HandshakeTimeout:   10 * time.Second,
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  30 * time.Second,
	}
}

// Channel is the push channel client. Listeners may be registered before
// Start and survive reconnects; subscriptions are handed out by the embedded
// registry and remain valid until Unlisten.
type Channel struct {
	params    Params
	sessionID string
	registry  *registry

	connected atomic.Bool

	mux  sync.Mutex
	stop *stoppable.Single
}

// NewChannel builds a Channel with a fresh session ID. It does not connect;
// call Start.
func NewChannel(params Params) (*Channel, error) {
	if params.URL == "" {
		return nil, errors.New(emptyURLErr)
	}
	defaults := GetDefaultParams()
	if params.HandshakeTimeout <= 0 {
		params.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if params.ReconnectBaseDelay <= 0 {
		params.ReconnectBaseDelay = defaults.ReconnectBaseDelay
	}
	if params.ReconnectMaxDelay <= 0 {
		params.ReconnectMaxDelay = defaults.ReconnectMaxDelay
	}

	return &Channel{
		params:    params,
		sessionID: uuid.NewString(),
		registry:  newRegistry(),
	}, nil
}

// Start spawns the listen thread. It returns immediately; the first dial and
// any redials happen on the thread.
func (ch *Channel) Start() error {
	ch.mux.Lock()
	defer ch.mux.Unlock()

	if ch.stop != nil {
		return errors.New(alreadyStartedErr)
	}

	ch.stop = stoppable.NewSingle(listenStoppableName)
	go ch.listen(ch.stop)
	return nil
}

// Close stops the listen thread and drops the connection.
func (ch *Channel) Close() error {
	ch.mux.Lock()
	stop := ch.stop
	ch.stop = nil
	ch.mux.Unlock()

	if stop == nil {
		return nil
	}
	return stop.Close()
}

// IsConnected reports whether the socket is currently live. The messaging
// layer polls while this is false.
func (ch *Channel) IsConnected() bool {
	return ch.connected.Load()
}

// SubscribeMessages registers a listener for message-sent events in the
// given conversation.
func (ch *Channel) SubscribeMessages(
	conversationID messaging.ConversationID,
	fn func(messaging.MessageSentEvent)) messaging.Subscription {
	return ch.registry.registerMessages(conversationID, fn)
}

// SubscribeReactions registers a listener for reaction-updated events.
func (ch *Channel) SubscribeReactions(
	fn func(messaging.ReactionEvent)) messaging.Subscription {
	return ch.registry.registerReactions(fn)
}

// SubscribeTyping registers a listener for typing events in the given
// conversation.
func (ch *Channel) SubscribeTyping(
	conversationID messaging.ConversationID,
	fn func(messaging.TypingEvent)) messaging.Subscription {
	return ch.registry.registerTyping(conversationID, fn)
}

// listen owns the connection for the Channel's whole life: dial, pump, and on
// failure redial with capped exponential backoff.
func (ch *Channel) listen(stop *stoppable.Single) {
	delay := ch.params.ReconnectBaseDelay

	for {
		conn, err := ch.dial()
		if err != nil {
			jww.WARN.Printf("[PUSH] Dial of %s failed, retrying in %s: %+v",
				ch.params.URL, delay, err)

			select {
			case <-stop.Quit():
				stop.ToStopped()
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > ch.params.ReconnectMaxDelay {
				delay = ch.params.ReconnectMaxDelay
			}
			continue
		}

		jww.INFO.Printf("[PUSH] Connected to %s (session %s)",
			ch.params.URL, ch.sessionID)
		delay = ch.params.ReconnectBaseDelay
		ch.connected.Store(true)
		ch.pump(conn, stop.Quit())
		ch.connected.Store(false)

		select {
		case <-stop.Quit():
			stop.ToStopped()
			return
		default:
			jww.WARN.Printf("[PUSH] Connection lost, redialing")
		}
	}
}

func (ch *Channel) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: ch.params.HandshakeTimeout,
	}

	header := http.Header{}
	if ch.params.AuthToken != "" {
		header.Set("Authorization", "Bearer "+ch.params.AuthToken)
	}
	header.Set("X-Session-ID", ch.sessionID)

	conn, _, err := dialer.Dial(ch.params.URL, header)
	return conn, err
}

// pump reads frames until the connection dies or quit closes. A ping loop
// keeps the read deadline honest; the server answers with pongs.
func (ch *Channel) pump(conn *websocket.Conn, quit <-chan struct{}) {
	defer func() {
		if err := conn.Close(); err != nil {
			jww.TRACE.Printf("[PUSH] Failed to close connection: %+v", err)
		}
	}()

	conn.SetReadLimit(maxFrameSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		jww.WARN.Printf("[PUSH] Failed to set read deadline: %+v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, quit, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-quit:
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway) {
					jww.WARN.Printf("[PUSH] Read failed: %+v", err)
				}
			}
			return
		}

		event, err := decodeFrame(data)
		if err != nil {
			jww.WARN.Printf("[PUSH] Dropped bad frame: %+v", err)
			continue
		}
		ch.registry.speak(event, ch.params.LocalUserID)
	}
}

// pingLoop pings on a fixed cadence and tears the connection down when quit
// closes, which unblocks the read side.
func pingLoop(conn *websocket.Conn, quit, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(writeWait))
			if err != nil {
				jww.TRACE.Printf("[PUSH] Ping failed: %+v", err)
				return
			}
		case <-quit:
			err := conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(
					websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			if err != nil {
				jww.TRACE.Printf("[PUSH] Close write failed: %+v", err)
			}
			_ = conn.Close()
			return
		case <-done:
			return
		}
	}
}
