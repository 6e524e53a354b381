// Package mail holds the outbound and inbound mail plumbing: MX resolution,
// SMTP submission, IMAP inbox scanning and message composition.
package mail

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/miekg/dns"
)

// Resolver looks up mail exchangers. *net.Resolver and *DNSResolver satisfy it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// NewResolver returns the system resolver, or a DNSResolver bound to
// nameserver when one is configured.
func NewResolver(nameserver string, timeout time.Duration) Resolver {
	if nameserver == "" {
		return net.DefaultResolver
	}
	return NewDNSResolver(nameserver, timeout)
}

// DNSResolver sends MX queries straight to one nameserver.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver for server ("host" or "host:port").
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &DNSResolver{
		server: server,
		client: &dns.Client{Timeout: timeout},
	}
}

// LookupMX returns the MX records for name sorted by preference. A name with
// no MX records yields a not-found *net.DNSError, like the system resolver.
func (r *DNSResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeMX)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, &net.DNSError{Err: err.Error(), Name: name, Server: r.server, IsTimeout: isTimeout(err)}
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, &net.DNSError{Err: "no such host", Name: name, Server: r.server, IsNotFound: true}
	default:
		return nil, &net.DNSError{
			Err:         fmt.Sprintf("server answered %s", dns.RcodeToString[in.Rcode]),
			Name:        name,
			Server:      r.server,
			IsTemporary: in.Rcode == dns.RcodeServerFailure,
		}
	}

	var out []*net.MX
	for _, rr := range in.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			out = append(out, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	if len(out) == 0 {
		return nil, &net.DNSError{Err: "no MX records", Name: name, Server: r.server, IsNotFound: true}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pref < out[j].Pref })
	return out, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
