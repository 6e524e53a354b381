package mail

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func startDNSServer(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		switch q.Name {
		case "oakdental.com.":
			for _, rec := range []struct {
				host string
				pref uint16
			}{{"mx2.oakdental.com.", 20}, {"mx1.oakdental.com.", 10}} {
				m.Answer = append(m.Answer, &dns.MX{
					Hdr:        dns.RR_Header{Name: q.Name, Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 60},
					Preference: rec.pref,
					Mx:         rec.host,
				})
			}
		case "nomx.com.":
		default:
			m.Rcode = dns.RcodeNameError
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestDNSResolver(t *testing.T) {
	r := NewDNSResolver(startDNSServer(t), 2*time.Second)
	ctx := context.Background()

	mx, err := r.LookupMX(ctx, "oakdental.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mx) != 2 || mx[0].Host != "mx1.oakdental.com." || mx[0].Pref != 10 {
		t.Errorf("expected mx1 first, got %+v %+v", mx[0], mx[1])
	}

	for _, name := range []string{"nomx.com", "missing.com"} {
		_, err := r.LookupMX(ctx, name)
		var dnsErr *net.DNSError
		if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
			t.Errorf("%s: expected not-found DNS error, got %v", name, err)
		}
	}
}

func TestNewResolver(t *testing.T) {
	if _, ok := NewResolver("", 0).(*net.Resolver); !ok {
		t.Error("expected the system resolver without a nameserver")
	}
	r, ok := NewResolver("1.1.1.1", 0).(*DNSResolver)
	if !ok {
		t.Fatal("expected a DNSResolver with a nameserver")
	}
	if r.server != "1.1.1.1:53" {
		t.Errorf("expected default port, got %q", r.server)
	}
}
