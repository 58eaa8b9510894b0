package printer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"comanda/internal/receipt"
)

// ServiceClient talks to the local print service over a line-delimited JSON
// protocol on a single TCP connection. One connection is shared for the
// process lifetime and reconnects never overlap.
type ServiceClient struct {
	addr        string
	dialTimeout time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	state    State
	conn     net.Conn
	reader   *bufio.Reader
	nextID   int64
	inflight chan struct{}
	lastErr  error
}

func NewServiceClient(addr string, dialTimeout time.Duration, logger *zap.Logger) *ServiceClient {
	return &ServiceClient{
		addr:        addr,
		dialTimeout: dialTimeout,
		logger:      logger,
		state:       StateIdle,
	}
}

func (c *ServiceClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ServiceClient) Active() bool {
	return c.State() == StateConnected
}

// Connect dials the print service. An already-active connection is treated as
// connected without re-dialing. While a dial is in flight, concurrent callers
// wait for its outcome instead of starting a second attempt.
func (c *ServiceClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	if c.inflight != nil {
		done := c.inflight
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
		err := c.lastErr
		c.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	c.inflight = done
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)

	c.mu.Lock()
	defer c.mu.Unlock()
	close(done)
	c.inflight = nil
	c.lastErr = err

	if err != nil {
		c.state = StateError
		c.logger.Warn("print service connect failed", zap.String("addr", c.addr), zap.Error(err))
		return fmt.Errorf("connecting to print service at %s: %w", c.addr, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.state = StateConnected
	c.logger.Info("print service connected", zap.String("addr", c.addr))
	return nil
}

func (c *ServiceClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateIdle
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

type request struct {
	ID     int64       `json:"id"`
	Call   string      `json:"call"`
	Params interface{} `json:"params,omitempty"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// call performs one request/response exchange. The connection is serialized:
// the service answers in order, one response line per request line.
func (c *ServiceClient) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected || c.conn == nil {
		return fmt.Errorf("print service connection is not active")
	}

	c.nextID++
	req := request{ID: c.nextID, Call: method, Params: params}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		c.fail(err)
		return fmt.Errorf("sending %s request: %w", method, err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		c.fail(err)
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("print service rejected %s: %s", method, resp.Error)
	}
	if result != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// fail drops the connection after a transport error so the next Connect
// re-dials. Caller holds c.mu.
func (c *ServiceClient) fail(err error) {
	c.state = StateError
	c.lastErr = err
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

func (c *ServiceClient) Printers(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.call(ctx, "printers.list", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *ServiceClient) Find(ctx context.Context, name string) (string, error) {
	var found string
	params := map[string]string{"query": name}
	if err := c.call(ctx, "printers.find", params, &found); err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no printer found under name %q", name)
	}
	return found, nil
}

func (c *ServiceClient) Print(ctx context.Context, printerName string, segments []receipt.Segment) error {
	params := map[string]interface{}{
		"printer": printerName,
		"data":    segments,
	}
	return c.call(ctx, "print", params, nil)
}
