// Package discovery advertises the status API over mDNS and finds it again
// from the status client.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/oshokin/garage-sentinel/internal/logger"
)

const (
	// ServiceType is the mDNS service type of the status API.
	ServiceType = "_garage-sentinel._tcp"
	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."
	// DefaultScanTimeout bounds a lookup.
	DefaultScanTimeout = 3 * time.Second

	// versionKey is the TXT record key carrying the daemon version.
	versionKey = "version="
)

// ErrNotFound is returned when no sentinel answered within the timeout.
var ErrNotFound = errors.New("no sentinel found on the local network")

// Endpoint is one discovered sentinel.
type Endpoint struct {
	// Instance is the advertised instance name.
	Instance string
	// HostName is the advertised host name.
	HostName string
	// Address is the dialable host:port.
	Address string
	// Version is the advertised daemon version.
	Version string
}

// Advertiser registers the status API while it runs.
type Advertiser struct {
	instance string
	port     int
	version  string
}

// NewAdvertiser creates an advertiser for the API listening on port.
func NewAdvertiser(instance string, port int, version string) *Advertiser {
	return &Advertiser{
		instance: instance,
		port:     port,
		version:  version,
	}
}

// Name identifies the loop in logs.
func (a *Advertiser) Name() string {
	return "mdns-advertiser"
}

// Run registers the service and withdraws it when ctx is done.
func (a *Advertiser) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, a.Name())

	server, err := zeroconf.Register(a.instance, ServiceType, ServiceDomain, a.port, []string{versionKey + a.version}, nil)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}

	logger.InfoKV(ctx, "Status API advertised", "instance", a.instance, "service", ServiceType, "port", a.port)

	<-ctx.Done()
	server.Shutdown()

	logger.Info(ctx, "Status API advertisement withdrawn")

	return nil
}

// Scanner browses for sentinels.
type Scanner struct {
	// Timeout is the maximum time to wait for answers.
	Timeout time.Duration
}

// NewScanner creates a scanner with the default timeout.
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan collects every sentinel that answers within the timeout.
func (s *Scanner) Scan(ctx context.Context) ([]Endpoint, error) {
	var (
		found []Endpoint
		mu    sync.Mutex
	)

	err := s.browse(ctx, func(e Endpoint) bool {
		mu.Lock()
		defer mu.Unlock()

		found = append(found, e)

		return false
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	return found, nil
}

// First returns the first sentinel that answers, optionally matching instance.
func (s *Scanner) First(ctx context.Context, instance string) (Endpoint, error) {
	result := make(chan Endpoint, 1)

	err := s.browse(ctx, func(e Endpoint) bool {
		if instance != "" && e.Instance != instance {
			return false
		}

		select {
		case result <- e:
		default:
		}

		return true
	})
	if err != nil {
		return Endpoint{}, err
	}

	select {
	case e := <-result:
		return e, nil
	default:
		return Endpoint{}, ErrNotFound
	}
}

// browse feeds parsed entries to visit until it returns true or the timeout expires.
func (s *Scanner) browse(ctx context.Context, visit func(Endpoint) bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("create mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	go func() {
		for entry := range entries {
			endpoint, ok := parseEntry(entry)
			if ok && visit(endpoint) {
				cancel()
			}
		}
	}()

	if err = resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("browse mdns services: %w", err)
	}

	<-ctx.Done()

	return nil
}

// parseEntry converts a service entry into an endpoint. Entries without an
// address are skipped.
func parseEntry(entry *zeroconf.ServiceEntry) (Endpoint, bool) {
	if entry == nil || entry.Port <= 0 {
		return Endpoint{}, false
	}

	var ip net.IP

	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return Endpoint{}, false
	}

	endpoint := Endpoint{
		Instance: entry.Instance,
		HostName: entry.HostName,
		Address:  net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)),
	}

	for _, txt := range entry.Text {
		if version, ok := strings.CutPrefix(txt, versionKey); ok {
			endpoint.Version = version
		}
	}

	return endpoint, true
}
