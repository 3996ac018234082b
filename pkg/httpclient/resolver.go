package httpclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// dnsCache remembers lookups for the life of a Client. A scan sends every
// probe to the same host, so one lookup serves the whole run.
type dnsCache struct {
	cache       sync.Map // map[string]*cacheEntry
	resolver    *net.Resolver
	ttl         time.Duration
	negativeTTL time.Duration
}

type cacheEntry struct {
	mu        sync.Mutex
	ips       []net.IP
	err       error
	expiresAt time.Time
}

func newDNSCache(ttl, negativeTTL time.Duration) *dnsCache {
	return &dnsCache{
		resolver:    &net.Resolver{PreferGo: true},
		ttl:         ttl,
		negativeTTL: negativeTTL,
	}
}

// lookup returns cached addresses for host, resolving on miss or expiry.
func (d *dnsCache) lookup(ctx context.Context, host string) ([]net.IP, error) {
	v, _ := d.cache.LoadOrStore(host, &cacheEntry{})
	entry := v.(*cacheEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if time.Now().Before(entry.expiresAt) {
		return entry.ips, entry.err
	}

	addrs, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		// A cancelled lookup says nothing about the host.
		if ctx.Err() != nil {
			return nil, err
		}
		entry.ips, entry.err = nil, err
		entry.expiresAt = time.Now().Add(d.negativeTTL)
		return nil, err
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		err := &net.DNSError{Err: fmt.Sprintf("no usable addresses (%d unparseable)", len(addrs)), Name: host}
		entry.ips, entry.err = nil, err
		entry.expiresAt = time.Now().Add(d.negativeTTL)
		return nil, err
	}

	entry.ips, entry.err = ips, nil
	entry.expiresAt = time.Now().Add(d.ttl)
	return ips, nil
}

func (d *dnsCache) invalidate(host string) {
	d.cache.Delete(host)
}

// cachingDialer dials direct connections through the DNS cache.
type cachingDialer struct {
	cache  *dnsCache
	dialer *net.Dialer
}

func (d *cachingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return d.dialer.DialContext(ctx, network, address)
	}
	if ip := net.ParseIP(host); ip != nil {
		return d.dialer.DialContext(ctx, network, address)
	}

	ips, err := d.cache.lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := d.dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	// Every address failed; resolve again next time.
	d.cache.invalidate(host)
	return nil, lastErr
}
