package httpstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/remote"
)

// Client implements remote.Store against an httpstore server.
//
// Subscribe opens a long-lived SSE request per pairing and re-dials with
// backoff after connection loss; delivery gaps are harmless because each
// event carries the full envelope and the engine reconciles by revision.
type Client struct {
	base   string
	token  string
	http   *http.Client
	sse    *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	streams map[string]*stream
	nextID  int
}

// stream is one SSE connection shared by all subscribers of a pairing.
type stream struct {
	cancel context.CancelFunc
	subs   map[int]remote.OnChange
}

// NewClient targets a server base URL such as "http://localhost:8600".
func NewClient(base, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		sse:     &http.Client{},
		logger:  logger,
		streams: make(map[string]*stream),
	}
}

func (c *Client) documentURL(pairingID string) string {
	return c.base + "/documents/" + pairingID
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// Fetch implements remote.Store.
func (c *Client) Fetch(ctx context.Context, pairingID string) (*plan.Envelope, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.documentURL(pairingID), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, remote.Transient("fetch", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, statusError("fetch", resp)
	}

	var env plan.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("fetch document: decode body: %w", err)
	}
	return &env, nil
}

// Upsert implements remote.Store.
func (c *Client) Upsert(ctx context.Context, pairingID string, doc plan.Document) (int64, error) {
	body, err := plan.CanonicalDocument(doc)
	if err != nil {
		return 0, fmt.Errorf("upsert document: encode body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.documentURL(pairingID), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, remote.Transient("upsert", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError("upsert", resp)
	}

	var out struct {
		Rev int64 `json:"rev"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("upsert document: decode response: %w", err)
	}
	return out.Rev, nil
}

// Subscribe implements remote.Store. The first subscriber for a pairing
// opens the SSE stream; later subscribers share it. The stream is torn down
// when the last subscriber leaves.
func (c *Client) Subscribe(pairingID string, fn remote.OnChange) (remote.Unsubscribe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.streams[pairingID]
	if st == nil {
		ctx, cancel := context.WithCancel(context.Background())
		st = &stream{cancel: cancel, subs: make(map[int]remote.OnChange)}
		c.streams[pairingID] = st
		go c.run(ctx, pairingID)
	}

	id := c.nextID
	c.nextID++
	st.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		cur := c.streams[pairingID]
		if cur == nil {
			return
		}
		delete(cur.subs, id)
		if len(cur.subs) == 0 {
			cur.cancel()
			delete(c.streams, pairingID)
		}
	}, nil
}

// Close tears down all streams.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for pairingID, st := range c.streams {
		st.cancel()
		delete(c.streams, pairingID)
	}
	return nil
}

// run keeps one SSE connection alive until the stream is cancelled.
func (c *Client) run(ctx context.Context, pairingID string) {
	backoff := time.Second
	for {
		err := c.consume(ctx, pairingID)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("event stream dropped", "pairing", pairingID, "err", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Client) consume(ctx context.Context, pairingID string) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.documentURL(pairingID)+"/events", nil)
	if err != nil {
		return err
	}

	// No client timeout: this request is meant to stay open.
	resp, err := c.sse.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("event stream: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var env plan.Envelope
		if err := json.Unmarshal([]byte(data), &env); err != nil {
			c.logger.Warn("drop malformed event", "pairing", pairingID, "err", err)
			continue
		}
		for _, fn := range c.subscribers(pairingID) {
			copied := env
			copied.Doc = env.Doc.Clone()
			fn(copied)
		}
	}
	return scanner.Err()
}

func (c *Client) subscribers(pairingID string) []remote.OnChange {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.streams[pairingID]
	if st == nil {
		return nil
	}
	ids := make([]int, 0, len(st.subs))
	for id := range st.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]remote.OnChange, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, st.subs[id])
	}
	return fns
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", remote.ErrUnauthorized, msg)
	default:
		return remote.Transient(op, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
}
