// Package resolve turns a bucket host name into the addresses it serves from.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	log "github.com/sirupsen/logrus"
)

const maxCNAMEDepth = 8

var ErrNoAddresses = errors.New("no addresses found for host")

type Resolver interface {
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}

// SystemResolver asks the operating system, like gethostbyname would.
type SystemResolver struct {
	Resolver *net.Resolver
}

func (r SystemResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s: %w", host, err)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		ips = append(ips, addr.IP)
	}
	if len(ips) == 0 {
		return nil, ErrNoAddresses
	}
	return ips, nil
}

// DNSResolver sends A and AAAA queries straight to one nameserver, so the
// answer does not depend on local resolver configuration.
type DNSResolver struct {
	Nameserver string
	client     *dns.Client
}

func NewDNSResolver(nameserver string, timeout time.Duration) *DNSResolver {
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}
	return &DNSResolver{
		Nameserver: nameserver,
		client:     &dns.Client{Timeout: timeout},
	}
}

func (r *DNSResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	var ips []net.IP
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		found, err := r.query(ctx, host, qtype)
		if err != nil {
			log.WithFields(log.Fields{"state": "resolve", "host": host, "type": dns.TypeToString[qtype], "errmsg": err.Error()}).Debug("dns query failed")
			lastErr = err
			continue
		}
		ips = append(ips, found...)
	}
	if len(ips) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNoAddresses
	}
	return ips, nil
}

func (r *DNSResolver) query(ctx context.Context, host string, qtype uint16) ([]net.IP, error) {
	name := dns.Fqdn(host)
	for depth := 0; depth <= maxCNAMEDepth; depth++ {
		m := new(dns.Msg)
		m.SetQuestion(name, qtype)
		m.RecursionDesired = true
		in, _, err := r.client.ExchangeContext(ctx, m, r.Nameserver)
		if err != nil {
			return nil, fmt.Errorf("error querying %s for %s: %w", r.Nameserver, name, err)
		}
		if in.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("error querying %s for %s: %s", r.Nameserver, name, dns.RcodeToString[in.Rcode])
		}
		var ips []net.IP
		cname := ""
		for _, rr := range in.Answer {
			switch record := rr.(type) {
			case *dns.A:
				ips = append(ips, record.A)
			case *dns.AAAA:
				ips = append(ips, record.AAAA)
			case *dns.CNAME:
				cname = record.Target
			}
		}
		if len(ips) > 0 || cname == "" {
			return ips, nil
		}
		log.WithFields(log.Fields{"state": "resolve", "host": name}).Debugf("following CNAME to %s", cname)
		name = cname
	}
	return nil, fmt.Errorf("CNAME chain too long for %s", host)
}
