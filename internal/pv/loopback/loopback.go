// Package loopback is an in-process PV-client transport used for
// tests and local development: "PV names" are just map keys, and
// monitor/get/put completions are delivered from goroutines rather
// than over a network.
//
// Grounded on the teacher's testing.go MockBackend: call-count
// tracking fields, a constructor taking functional options, and a
// compile-time interface assertion. Uses golang.org/x/time/rate to
// simulate bounded transport throughput, so tests can exercise
// realistic async completion timing without a real control-system
// transport (see SPEC_FULL.md §11).
package loopback

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/behrlich/go-seq/internal/pv"
	"github.com/behrlich/go-seq/internal/vartype"
)

// Client is an in-process pv.Client implementation.
type Client struct {
	mu            sync.Mutex
	vars          map[string]*variable
	limiter       *rate.Limiter
	neverComplete bool // test hook for scenario S3: adapter never calls back
	nextHandle    int
	nextSub       int

	GetCalls     int
	PutCalls     int
	MonitorCalls int
}

type variable struct {
	name      string
	handle    int
	connected bool
	onConnect pv.ConnectFunc
	value     []byte
	subs      map[int]pv.MonitorCallback
}

var _ pv.Client = (*Client)(nil)

// Option configures a Client at construction time.
type Option func(*Client)

// WithRateLimit bounds how fast completions are delivered, simulating
// transport throughput limits.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithNeverComplete makes every Get/Put callback never fire, modeling
// "adapter never calls back" (end-to-end scenario S3).
func WithNeverComplete() Option {
	return func(c *Client) { c.neverComplete = true }
}

// New creates a loopback client with no pre-existing PVs.
func New(opts ...Option) *Client {
	c := &Client{
		vars:    make(map[string]*variable),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Attach() error { return nil }

func (c *Client) Flush() {}

// CreateVar creates (or reuses, if already created by this name) the
// named variable and connects it asynchronously, delivering
// onConnect(true) once.
func (c *Client) CreateVar(name string, onConnect pv.ConnectFunc) (pv.Handle, error) {
	c.mu.Lock()
	v, exists := c.vars[name]
	if !exists {
		c.nextHandle++
		v = &variable{name: name, handle: c.nextHandle, subs: make(map[int]pv.MonitorCallback)}
		c.vars[name] = v
	}
	v.onConnect = onConnect
	handle := v.handle
	c.mu.Unlock()

	go func() {
		c.waitLimiter()
		c.mu.Lock()
		v.connected = true
		cb := v.onConnect
		c.mu.Unlock()
		if cb != nil {
			cb(handle, true)
		}
	}()

	return handle, nil
}

func (c *Client) DestroyVar(h pv.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, v := range c.vars {
		if v.handle == h {
			delete(c.vars, name)
			return nil
		}
	}
	return nil
}

func (c *Client) findByHandle(h pv.Handle) *variable {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.vars {
		if v.handle == h {
			return v
		}
	}
	return nil
}

func (c *Client) waitLimiter() {
	if c.limiter != nil {
		_ = c.limiter.Wait(context.Background())
	}
}

// GetCallback delivers the variable's current value asynchronously.
// If the client was built WithNeverComplete, cb is never invoked
// (scenario S3's timeout path).
func (c *Client) GetCallback(h pv.Handle, tag vartype.Tag, count int, cb pv.GetCallback) error {
	c.mu.Lock()
	c.GetCalls++
	neverComplete := c.neverComplete
	c.mu.Unlock()

	if neverComplete {
		return nil
	}
	v := c.findByHandle(h)
	if v == nil {
		return nil
	}
	go func() {
		c.waitLimiter()
		c.mu.Lock()
		value := append([]byte(nil), v.value...)
		c.mu.Unlock()
		cb(h, pv.Status{Timestamp: now()}, value)
	}()
	return nil
}

// PutCallback writes value and notifies monitors, then (unless
// WithNeverComplete) invokes cb.
func (c *Client) PutCallback(h pv.Handle, tag vartype.Tag, count int, value []byte, cb pv.PutCallback) error {
	c.mu.Lock()
	c.PutCalls++
	neverComplete := c.neverComplete
	c.mu.Unlock()

	c.applyPut(h, value)

	if neverComplete {
		return nil
	}
	go func() {
		c.waitLimiter()
		cb(h, pv.Status{Timestamp: now()})
	}()
	return nil
}

// PutNoBlock writes value and notifies monitors with no completion.
func (c *Client) PutNoBlock(h pv.Handle, tag vartype.Tag, count int, value []byte) error {
	c.mu.Lock()
	c.PutCalls++
	c.mu.Unlock()
	c.applyPut(h, value)
	return nil
}

func (c *Client) applyPut(h pv.Handle, value []byte) {
	v := c.findByHandle(h)
	if v == nil {
		return
	}
	c.mu.Lock()
	v.value = append([]byte(nil), value...)
	subs := make([]pv.MonitorCallback, 0, len(v.subs))
	for _, cb := range v.subs {
		subs = append(subs, cb)
	}
	snapshot := append([]byte(nil), v.value...)
	c.mu.Unlock()
	for _, cb := range subs {
		cb(h, pv.Status{Timestamp: now()}, snapshot)
	}
}

// MonitorOn registers cb and immediately delivers the current value,
// matching a real CA monitor's initial callback on subscribe.
func (c *Client) MonitorOn(h pv.Handle, tag vartype.Tag, count int, cb pv.MonitorCallback) (pv.SubID, error) {
	c.mu.Lock()
	c.MonitorCalls++
	v := (*variable)(nil)
	for _, candidate := range c.vars {
		if candidate.handle == h {
			v = candidate
			break
		}
	}
	if v == nil {
		c.mu.Unlock()
		return nil, nil
	}
	c.nextSub++
	sub := c.nextSub
	v.subs[sub] = cb
	value := append([]byte(nil), v.value...)
	c.mu.Unlock()

	cb(h, pv.Status{Timestamp: now()}, value)
	return sub, nil
}

func (c *Client) MonitorOff(h pv.Handle, sub pv.SubID) error {
	v := c.findByHandle(h)
	if v == nil {
		return nil
	}
	id, ok := sub.(int)
	if !ok {
		return nil
	}
	c.mu.Lock()
	delete(v.subs, id)
	c.mu.Unlock()
	return nil
}

// Set lets a test drive a PV's value directly, as if an external
// writer (not this runtime) changed it, triggering any monitors.
func (c *Client) Set(name string, value []byte) {
	c.mu.Lock()
	v, ok := c.vars[name]
	c.mu.Unlock()
	if !ok {
		return
	}
	c.applyPut(v.handle, value)
}

func now() time.Time { return time.Now() }
