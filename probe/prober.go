package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Default probe targets. The endpoints are picked for low latency and
// high availability, not for any service they provide.
const (
	DefaultDNSHost      = "www.google.com"
	DefaultProbeURL     = "https://www.gstatic.com/generate_204"
	DefaultFallbackURL  = "https://clients3.google.com/generate_204"
	DefaultProbeTimeout = 5 * time.Second
)

// Result is the outcome of one connectivity check.
type Result struct {
	// Connected reports whether any probe reached the internet.
	Connected bool

	// Method names the check that decided the outcome
	// ("interfaces", "dns", "https", "https-fallback").
	Method string

	// Latency is the total time the check took.
	Latency time.Duration

	// Err is the failure that decided a not-connected outcome, if any.
	Err error
}

// Config configures a Prober.
type Config struct {
	// DNSHost is the hostname resolved in step 2.
	// Default: www.google.com
	DNSHost string

	// ProbeURL is the primary HTTPS status endpoint.
	// Default: https://www.gstatic.com/generate_204
	ProbeURL string

	// FallbackURL is the secondary HTTPS endpoint.
	// Default: https://clients3.google.com/generate_204
	FallbackURL string

	// Timeout bounds each individual step.
	// Default: 5 seconds
	Timeout time.Duration
}

// Resolver is the subset of net.Resolver the prober needs.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Prober performs multi-method reachability checks.
type Prober struct {
	config Config

	// Injection points for tests.
	interfaces func() ([]net.Interface, error)
	resolver   Resolver
	client     *http.Client
}

// Option customizes a Prober.
type Option func(*Prober)

// WithHTTPClient overrides the HTTP client used for the HTTPS probes.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

// WithResolver overrides the DNS resolver.
func WithResolver(r Resolver) Option {
	return func(p *Prober) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithInterfaceLister overrides how local interfaces are enumerated.
func WithInterfaceLister(fn func() ([]net.Interface, error)) Option {
	return func(p *Prober) {
		if fn != nil {
			p.interfaces = fn
		}
	}
}

// New creates a Prober.
func New(config Config, opts ...Option) *Prober {
	// Apply defaults
	if config.DNSHost == "" {
		config.DNSHost = DefaultDNSHost
	}
	if config.ProbeURL == "" {
		config.ProbeURL = DefaultProbeURL
	}
	if config.FallbackURL == "" {
		config.FallbackURL = DefaultFallbackURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultProbeTimeout
	}

	p := &Prober{
		config:     config,
		interfaces: net.Interfaces,
		resolver:   net.DefaultResolver,
		client:     &http.Client{Timeout: config.Timeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check runs the probe chain. It never panics; all transport errors are
// reported as a not-connected Result.
func (p *Prober) Check(ctx context.Context) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = Result{Method: "panic", Err: fmt.Errorf("probe panicked: %v", r)}
		}
		result.Latency = time.Since(start)
	}()

	// Step 1: zero active network hardware means nothing else can work.
	up, err := p.anyInterfaceUp()
	if err == nil && !up {
		return Result{Method: "interfaces", Err: errNoInterfaces}
	}
	// Interface enumeration errors are not authoritative; fall through.

	// Step 2: DNS resolution gate.
	dnsCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	_, err = p.resolver.LookupHost(dnsCtx, p.config.DNSHost)
	cancel()
	if err != nil {
		return Result{Method: "dns", Err: err}
	}

	// Steps 3 and 4: the first HTTPS probe that answers wins.
	if err := p.httpProbe(ctx, p.config.ProbeURL); err == nil {
		return Result{Connected: true, Method: "https"}
	}
	err = p.httpProbe(ctx, p.config.FallbackURL)
	if err == nil {
		return Result{Connected: true, Method: "https-fallback"}
	}
	return Result{Method: "https-fallback", Err: err}
}

var errNoInterfaces = fmt.Errorf("probe: no non-loopback interface is up")

func (p *Prober) anyInterfaceUp() (bool, error) {
	ifaces, err := p.interfaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (p *Prober) httpProbe(ctx context.Context, url string) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// generate_204 endpoints answer 204; any 2xx is proof of reachability.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe: %s answered %d", url, resp.StatusCode)
	}
	return nil
}
