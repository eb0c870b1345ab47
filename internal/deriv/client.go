package deriv

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Client — одно WS-соединение с Deriv. Запросы коррелируются по req_id,
// подписки (тики, портфель) раскладываются ридером по своим каналам.
type Client struct {
	wsDialer *websocket.Dialer
	url      string
	token    string
	useAuth  bool

	mu         sync.Mutex // conn + pending + запись в сокет
	conn       *websocket.Conn
	pending    map[int64]chan rpcResult
	done       chan struct{}
	authorized bool

	reqID int64

	ticks     chan models.Tick
	portfolio chan PortfolioUpdate
}

type rpcResult struct {
	raw []byte
	err error
}

func NewClient(url, token string, useAuth bool) *Client {
	return &Client{
		wsDialer: &websocket.Dialer{},
		url:      url,
		token:    token,
		useAuth:  useAuth,
		pending:  make(map[int64]chan rpcResult),
		// буферы с запасом: ридер не должен вставать на медленном потребителе
		ticks:     make(chan models.Tick, 2048),
		portfolio: make(chan PortfolioUpdate, 64),
	}
}

// Connect открывает сокет, запускает ридер и (если нужно) авторизуется.
// При обрыве транспорта Done() закрывается — реконнект на вызывающем.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.wsDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrap(err, "deriv dial")
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.authorized = false
	c.mu.Unlock()

	go c.readLoop(conn)

	if c.useAuth {
		if err := c.authorize(ctx); err != nil {
			c.Close()
			return err
		}
	}

	return nil
}

// Done закрыт, когда текущее соединение умерло.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) authorize(ctx context.Context) error {
	if c.token == "" {
		return errors.New("deriv api token not set")
	}

	raw, err := c.request(ctx, map[string]any{"authorize": c.token})
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}

	var resp struct {
		Authorize *struct {
			LoginID string  `json:"loginid"`
			Balance float64 `json:"balance"`
		} `json:"authorize"`
	}
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("authorize decode: %w", err)
	}
	if resp.Authorize == nil {
		return fmt.Errorf("authorize: empty response")
	}

	c.mu.Lock()
	c.authorized = true
	c.mu.Unlock()

	logger.Info("authorized as %s, balance %.2f", resp.Authorize.LoginID, resp.Authorize.Balance)
	return nil
}

// request шлёт сообщение со свежим req_id и ждёт ответ именно на него.
// Остальной входящий трафик в это время обрабатывает ридер.
func (c *Client) request(ctx context.Context, msg map[string]any) ([]byte, error) {
	id := atomic.AddInt64(&c.reqID, 1)
	msg["req_id"] = id

	payload, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ch := make(chan rpcResult, 1)

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, errors.New("not connected")
	}
	c.pending[id] = ch
	err = c.conn.WriteMessage(websocket.TextMessage, payload)
	c.mu.Unlock()

	if err != nil {
		c.dropPending(id)
		return nil, errors.Wrap(err, "write request")
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.raw, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	}
}

func (c *Client) dropPending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// readLoop классифицирует каждый входящий кадр: ответ на pending req_id,
// пуш тика/портфеля или мусор. Выходит на первой ошибке транспорта.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		for id, ch := range c.pending {
			ch <- rpcResult{err: errors.New("connection closed")}
			delete(c.pending, id)
		}
		close(c.done)
		c.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Error("read: %v", err)
			return
		}

		var frame inboundFrame
		if err := sonic.Unmarshal(raw, &frame); err != nil {
			logger.Error("protocol: undecodable frame: %v", err)
			continue
		}

		// ответ на живой запрос?
		if frame.ReqID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[frame.ReqID]
			if ok {
				delete(c.pending, frame.ReqID)
			}
			c.mu.Unlock()
			if ok {
				if frame.Error != nil {
					ch <- rpcResult{err: &BrokerError{Code: frame.Error.Code, Message: frame.Error.Message}}
				} else {
					ch <- rpcResult{raw: raw}
				}
				continue
			}
		}

		// пуши подписок (несут req_id первого запроса — он уже не pending)
		switch {
		case frame.Tick != nil:
			t := models.Tick{
				Symbol: frame.Tick.Symbol,
				Price:  frame.Tick.Quote,
				Epoch:  frame.Tick.Epoch,
			}
			select {
			case c.ticks <- t:
			default:
				logger.Error("tick channel full, dropping %s @ %.4f", t.Symbol, t.Price)
			}
		case frame.Portfolio != nil:
			select {
			case c.portfolio <- *frame.Portfolio:
			default:
				logger.Error("portfolio channel full, dropping update")
			}
		case frame.Error != nil:
			logger.Error("protocol: unsolicited error %s: %s", frame.Error.Code, frame.Error.Message)
		default:
			logger.Error("protocol: unrecognized frame msg_type=%q", frame.MsgType)
		}
	}
}
