package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyProvider implements Provider against a Valkey/Redis-compatible server.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// ValkeyConfig holds connection parameters for the Valkey server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewValkeyProvider creates a Provider and pings the server so bad
// credentials or addresses fail at startup.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	cfg.withDefaults()
	provider := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	reply, err := provider.do(ctx, "PING")
	if err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	if reply.kind != '+' || string(reply.data) != "PONG" {
		return nil, fmt.Errorf("unexpected PING response: %q", reply.data)
	}
	return provider, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	switch {
	case reply.null:
		return nil, ErrCacheMiss
	case reply.kind == '$':
		return reply.data, nil
	default:
		return nil, fmt.Errorf("unexpected valkey reply %q for GET", reply.kind)
	}
}

// Set stores bytes; ttl <= 0 stores without expiry.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	reply, err := p.do(ctx, args...)
	if err != nil {
		return err
	}
	if reply.kind != '+' || string(reply.data) != "OK" {
		return fmt.Errorf("unexpected SET response: %q", reply.data)
	}
	return nil
}

// Del removes a key.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", key)
	return err
}

// Close is a no-op; connections are not pooled.
func (p *ValkeyProvider) Close() error { return nil }

// do runs one command on a fresh connection, retrying transient network errors.
func (p *ValkeyProvider) do(ctx context.Context, args ...string) (respReply, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return respReply{}, err
		}
		reply, err := p.roundTrip(ctx, args)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return respReply{}, ctx.Err()
		case <-time.After(time.Duration(1<<attempt) * 25 * time.Millisecond):
		}
	}
	return respReply{}, lastErr
}

func (p *ValkeyProvider) roundTrip(ctx context.Context, args []string) (respReply, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return respReply{}, err
	}
	defer conn.Close()

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	exchange := func(cmd ...string) (respReply, error) {
		if err := conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout)); err != nil {
			return respReply{}, err
		}
		if err := writeCommand(rw.Writer, cmd); err != nil {
			return respReply{}, err
		}
		if err := conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout)); err != nil {
			return respReply{}, err
		}
		return readReply(rw.Reader)
	}

	if p.cfg.Password != "" {
		auth := []string{"AUTH", p.cfg.Password}
		if p.cfg.Username != "" {
			auth = []string{"AUTH", p.cfg.Username, p.cfg.Password}
		}
		if _, err := exchange(auth...); err != nil {
			return respReply{}, fmt.Errorf("auth failed: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if _, err := exchange("SELECT", strconv.Itoa(p.cfg.DB)); err != nil {
			return respReply{}, fmt.Errorf("select failed: %w", err)
		}
	}
	return exchange(args...)
}

func (p *ValkeyProvider) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout}
	if !p.cfg.TLS {
		return dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	host, _, err := net.SplitHostPort(p.cfg.Addr)
	if err != nil {
		host = p.cfg.Addr
	}
	td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}}
	return td.DialContext(ctx, "tcp", p.cfg.Addr)
}

func (c *ValkeyConfig) withDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
}

// respReply is the subset of RESP2 replies the provider understands.
type respReply struct {
	kind byte
	data []byte
	null bool
}

// errServer carries a '-' error reply; it is never retried.
type errServer string

func (e errServer) Error() string { return string(e) }

func writeCommand(w *bufio.Writer, args []string) error {
	fmt.Fprintf(w, "*%d\r\n", len(args))
	for _, arg := range args {
		fmt.Fprintf(w, "$%d\r\n%s\r\n", len(arg), arg)
	}
	return w.Flush()
}

func readReply(r *bufio.Reader) (respReply, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return respReply{}, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return respReply{}, errors.New("empty RESP line")
	}
	kind, body := line[0], line[1:]
	switch kind {
	case '+', ':':
		return respReply{kind: kind, data: []byte(body)}, nil
	case '-':
		return respReply{}, errServer(body)
	case '_':
		return respReply{kind: kind, null: true}, nil
	case '$':
		size, err := strconv.Atoi(body)
		if err != nil {
			return respReply{}, fmt.Errorf("bad bulk length %q: %w", body, err)
		}
		if size < 0 {
			return respReply{kind: kind, null: true}, nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return respReply{}, err
		}
		if buf[size] != '\r' || buf[size+1] != '\n' {
			return respReply{}, errors.New("invalid bulk string termination")
		}
		return respReply{kind: kind, data: buf[:size]}, nil
	default:
		return respReply{}, fmt.Errorf("unexpected RESP prefix %q", kind)
	}
}

func retryable(err error) bool {
	var srv errServer
	if errors.As(err, &srv) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
