package whois

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/utils"
)

const (
	// defaultIANAAddr is the root WHOIS server that refers queries to the
	// registry responsible for the TLD.
	defaultIANAAddr = "whois.iana.org:43"

	// maxResponseBytes caps how much of a WHOIS response is read.
	maxResponseBytes = 1 << 20
)

// Client looks up WHOIS records through an ordered chain of methods: a
// direct port-43 query (following the IANA referral to the registry server),
// then the system whois binary. The first method that produces output wins.
type Client struct {
	cfg    Config
	logger interfaces.Logger

	// Overridable in tests.
	ianaAddr    string
	whoisBinary string
}

func NewClient(cfg Config, logger interfaces.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if cfg.TimeoutSeconds < 1 {
		return nil, fmt.Errorf("timeout must be at least 1 second, got %d", cfg.TimeoutSeconds)
	}
	return &Client{
		cfg:         cfg,
		logger:      logger.With(interfaces.Field{Key: "component", Value: "whois"}),
		ianaAddr:    defaultIANAAddr,
		whoisBinary: "whois",
	}, nil
}

func (c *Client) timeout() time.Duration {
	return time.Duration(c.cfg.TimeoutSeconds) * time.Second
}

// Lookup queries WHOIS data for the domain, trying each method in turn.
// When every method fails, the returned error lists what each one reported.
func (c *Client) Lookup(ctx context.Context, domain string) (*Record, error) {
	domain = utils.ASCIIDomain(domain)
	if domain == "" {
		return nil, fmt.Errorf("domain must not be empty")
	}

	var attempts []string

	raw, err := c.lookupDirect(ctx, domain)
	if err == nil {
		rec := parseResponse(domain, raw)
		rec.Method = "port43"
		c.logger.Info("whois lookup succeeded",
			interfaces.Field{Key: "domain", Value: domain},
			interfaces.Field{Key: "method", Value: rec.Method})
		return rec, nil
	}
	attempts = append(attempts, fmt.Sprintf("Method 1 (port43): %v", err))
	c.logger.Warn("direct whois query failed",
		interfaces.Field{Key: "domain", Value: domain},
		interfaces.Field{Key: "error", Value: err.Error()})

	raw, err = c.lookupSystem(ctx, domain)
	if err == nil {
		rec := parseResponse(domain, raw)
		rec.Method = "system"
		c.logger.Info("whois lookup succeeded",
			interfaces.Field{Key: "domain", Value: domain},
			interfaces.Field{Key: "method", Value: rec.Method})
		return rec, nil
	}
	attempts = append(attempts, fmt.Sprintf("Method 2 (system): %v", err))
	c.logger.Warn("system whois command failed",
		interfaces.Field{Key: "domain", Value: domain},
		interfaces.Field{Key: "error", Value: err.Error()})

	return nil, fmt.Errorf("all whois lookup methods failed: %s", strings.Join(attempts, "; "))
}

// lookupDirect speaks the WHOIS protocol itself: ask IANA which server is
// authoritative for the TLD, then repeat the query there. Responses without
// a referral are returned as-is.
func (c *Client) lookupDirect(ctx context.Context, domain string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	text, err := c.queryServer(ctx, c.ianaAddr, domain)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", c.ianaAddr, err)
	}

	referred := referralServer(text)
	if referred == "" {
		return text, nil
	}

	addr := ensurePort(referred)
	text, err = c.queryServer(ctx, addr, domain)
	if err != nil {
		return "", fmt.Errorf("querying referred server %s: %w", addr, err)
	}
	return text, nil
}

// queryServer performs one WHOIS exchange: connect, send the domain, read
// the full response.
func (c *Client) queryServer(ctx context.Context, addr, domain string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n", domain); err != nil {
		return "", fmt.Errorf("sending query: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(conn, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("empty response")
	}
	return string(data), nil
}

// lookupSystem shells out to the whois binary.
func (c *Client) lookupSystem(ctx context.Context, domain string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	out, err := exec.CommandContext(ctx, c.whoisBinary, domain).Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("whois command timed out")
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("whois command not found on system")
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("whois command failed with code %d", exitErr.ExitCode())
		}
		return "", err
	}
	if strings.TrimSpace(string(out)) == "" {
		return "", fmt.Errorf("empty response")
	}
	return string(out), nil
}

// ensurePort appends the WHOIS port when the referral names a bare host.
func ensurePort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, "43")
}
