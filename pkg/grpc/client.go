package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
)

// Client holds one connection. Calls are serialized on it.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder

	mu     sync.Mutex
	nextID int64
}

type wireResponse struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  int             `json:"code"`
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

// Call sends params to method and decodes the reply into result, which may
// be nil. Remote failures come back as *apperrors.AppError carrying the
// server's status code. The context deadline, if any, bounds the round trip.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding params for %s: %w", method, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("setting deadline: %w", err)
	}

	c.nextID++
	id := strconv.FormatInt(c.nextID, 10)
	if err := c.enc.Encode(Request{Method: method, ID: id, Params: raw}); err != nil {
		return fmt.Errorf("sending %s: %w", method, err)
	}
	var resp wireResponse
	if err := c.dec.Decode(&resp); err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.ID != id {
		return fmt.Errorf("%s: response id %q does not match request %q", method, resp.ID, id)
	}
	if resp.Error != "" {
		return apperrors.New(sentinelFor(resp.Code), resp.Code, resp.Error)
	}
	if result != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func sentinelFor(code int) error {
	switch code {
	case http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case http.StatusServiceUnavailable:
		return apperrors.ErrUnavailable
	default:
		return apperrors.ErrInternal
	}
}
