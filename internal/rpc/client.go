package rpc

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/gobancho/server/internal/bancho"
)

// DefaultDeadline bounds a single remote call.
const DefaultDeadline = 5 * time.Second

// Client issues calls against one RPC server address. One connection per
// call keeps failure handling trivial; callers that need throughput can
// pool clients.
type Client struct {
	addr     string
	deadline time.Duration
}

func NewClient(addr string, deadline time.Duration) *Client {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Client{addr: addr, deadline: deadline}
}

// Call issues one method call. in is marshalled as the request body; a
// non-nil out receives the unmarshalled response body. Deadline overruns
// and transport failures map to ErrUnavailable; remote statuses map back
// through ErrorOf.
func (c *Client) Call(ctx context.Context, method string, md map[string]string, in, out any) error {
	deadline := time.Now().Add(c.deadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := (&net.Dialer{Deadline: deadline}).DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", bancho.ErrUnavailable, c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	var body []byte
	if in != nil {
		if body, err = codec.Marshal(in); err != nil {
			return fmt.Errorf("%w: marshal request: %v", bancho.ErrInternal, err)
		}
	}
	raw, err := codec.Marshal(&request{Method: method, Metadata: md, Body: body})
	if err != nil {
		return fmt.Errorf("%w: marshal envelope: %v", bancho.ErrInternal, err)
	}

	if err := WriteFrame(conn, raw); err != nil {
		return transportErr(method, err)
	}
	rawResp, err := ReadFrame(conn)
	if err != nil {
		return transportErr(method, err)
	}

	var resp response
	if err := codec.Unmarshal(rawResp, &resp); err != nil {
		return fmt.Errorf("%w: malformed response for %s", bancho.ErrInternal, method)
	}
	if resp.Status != StatusOK {
		return ErrorOf(resp.Status, resp.Error)
	}
	if out != nil && len(resp.Body) > 0 {
		if err := codec.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("%w: unmarshal response for %s: %v", bancho.ErrInternal, method, err)
		}
	}
	return nil
}

func transportErr(method string, err error) error {
	if os.IsTimeout(err) {
		return fmt.Errorf("%w: deadline exceeded for %s", bancho.ErrUnavailable, method)
	}
	return fmt.Errorf("%w: %s: %v", bancho.ErrUnavailable, method, err)
}
