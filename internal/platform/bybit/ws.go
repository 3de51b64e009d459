package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pingPeriod is the interval of application-level {"op":"ping"} frames.
	// Bybit disconnects idle public streams after roughly 30 seconds.
	pingPeriod = 20 * time.Second

	// topicPrefix selects depth-1 orderbook streams.
	topicPrefix = "orderbook.1."

	// subscribeChunk is the number of topics sent per subscribe frame.
	subscribeChunk = 10

	// subscribeDelay spaces consecutive subscribe frames so large symbol
	// sets do not trip the server's request rate limit.
	subscribeDelay = time.Second
)

// BookTickerHandler is called for every complete top-of-book update.
type BookTickerHandler func(domain.BookTicker)

// wsTop is the last known top level per symbol, used to complete delta
// frames that carry only one side.
type wsTop struct {
	bid, bidSize float64
	ask, askSize float64
	hasBid       bool
	hasAsk       bool
}

// WSClient is a WebSocket client for the Bybit v5 public spot stream. It
// manages one connection, subscriptions, and dispatches parsed top-of-book
// updates to registered handlers. Reconnection policy belongs to the caller;
// a read failure is reported through Err and the client becomes unusable.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.Mutex
	closed bool

	// Topics to restore when Connect is called again on the same client.
	subscriptions []string

	handlers  []BookTickerHandler
	handlerMu sync.RWMutex

	// lastTop is touched only by the read loop goroutine.
	lastTop map[string]*wsTop

	done  chan struct{}
	errCh chan error
}

// NewWSClient creates a client for the given stream URL, e.g.
// "wss://stream.bybit.com/v5/public/spot".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL:   wsURL,
		lastTop: make(map[string]*wsTop),
		done:    make(chan struct{}),
		errCh:   make(chan error, 1),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. Previously requested subscriptions are restored.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("bybit/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("bybit/ws: connect: %w", err)
	}
	w.conn = conn

	go w.readLoop()
	go w.pingLoop()

	for _, chunk := range chunkTopics(w.subscriptions, subscribeChunk) {
		if err := w.sendCommand(wsCommand{Op: "subscribe", Args: chunk}); err != nil {
			return fmt.Errorf("bybit/ws: restore subscription: %w", err)
		}
	}
	return nil
}

// Subscribe requests depth-1 orderbook streams for the given symbols. Topics
// are sent in chunks with a short delay in between.
func (w *WSClient) Subscribe(ctx context.Context, symbols []string) error {
	topics := make([]string, len(symbols))
	for i, sym := range symbols {
		topics[i] = topicPrefix + sym
	}

	for i, chunk := range chunkTopics(topics, subscribeChunk) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(subscribeDelay):
			}
		}

		w.mu.Lock()
		if w.conn == nil {
			w.mu.Unlock()
			return fmt.Errorf("bybit/ws: not connected")
		}
		err := w.sendCommand(wsCommand{Op: "subscribe", Args: chunk})
		if err == nil {
			w.subscriptions = append(w.subscriptions, chunk...)
		}
		w.mu.Unlock()

		if err != nil {
			return fmt.Errorf("bybit/ws: subscribe: %w", err)
		}
	}
	return nil
}

// OnBookTicker registers a handler invoked for every complete top-of-book
// update. Handlers run on the read loop goroutine and must not block.
func (w *WSClient) OnBookTicker(handler BookTickerHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Err reports a fatal read failure. The channel receives at most one error.
func (w *WSClient) Err() <-chan error {
	return w.errCh
}

// Close shuts down the connection and stops the loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// sendCommand sends a JSON control frame. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames until the connection fails or the client is closed.
func (w *WSClient) readLoop() {
	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, message, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			case w.errCh <- fmt.Errorf("bybit/ws: read: %w", err):
			default:
			}
			return
		}
		w.handleMessage(message)
	}
}

// pingLoop sends the application-level ping Bybit expects on public streams.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			if w.conn != nil && !w.closed {
				_ = w.sendCommand(wsCommand{Op: "ping"})
			}
			w.mu.Unlock()
		}
	}
}

// handleMessage parses one inbound frame. Control acknowledgements and
// unknown topics are ignored; malformed frames are dropped.
func (w *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Op != "" || !strings.HasPrefix(msg.Topic, topicPrefix) {
		return
	}

	symbol := msg.Data.Symbol
	if symbol == "" {
		symbol = strings.TrimPrefix(msg.Topic, topicPrefix)
	}
	if symbol == "" {
		return
	}

	top, ok := w.lastTop[symbol]
	if !ok {
		top = &wsTop{}
		w.lastTop[symbol] = top
	}

	// Depth-1 frames carry at most one level per side; a delta with an
	// empty side means that side is unchanged.
	if len(msg.Data.Bids) > 0 {
		price, size, err := parseLevel(msg.Data.Bids[0])
		if err != nil {
			return
		}
		top.bid, top.bidSize, top.hasBid = price, size, true
	}
	if len(msg.Data.Asks) > 0 {
		price, size, err := parseLevel(msg.Data.Asks[0])
		if err != nil {
			return
		}
		top.ask, top.askSize, top.hasAsk = price, size, true
	}

	// Emit only once both sides have been seen at least once.
	if !top.hasBid || !top.hasAsk {
		return
	}

	t := domain.BookTicker{
		Symbol:   symbol,
		BidPrice: top.bid,
		BidSize:  top.bidSize,
		AskPrice: top.ask,
		AskSize:  top.askSize,
		Time:     time.Now(),
	}

	w.handlerMu.RLock()
	handlers := w.handlers
	w.handlerMu.RUnlock()
	for _, h := range handlers {
		h(t)
	}
}

// parseLevel decodes one [price, size] string pair.
func parseLevel(level [2]string) (price, size float64, err error) {
	price, err = strconv.ParseFloat(level[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse price %q: %w", level[0], err)
	}
	size, err = strconv.ParseFloat(level[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse size %q: %w", level[1], err)
	}
	return price, size, nil
}

// chunkTopics splits topics into slices of at most n.
func chunkTopics(topics []string, n int) [][]string {
	var chunks [][]string
	for len(topics) > n {
		chunks = append(chunks, topics[:n])
		topics = topics[n:]
	}
	if len(topics) > 0 {
		chunks = append(chunks, topics)
	}
	return chunks
}
