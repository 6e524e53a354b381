package contact

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// State is the verification outcome for one address.
type State int

const (
	Unverified State = iota
	MXValid
	SMTPAccepted
	Rejected
)

func (s State) String() string {
	switch s {
	case MXValid:
		return "mx-valid"
	case SMTPAccepted:
		return "smtp-accepted"
	case Rejected:
		return "rejected"
	}
	return "unverified"
}

// Deliverable reports whether the address may be mailed.
func (s State) Deliverable() bool {
	return s == MXValid || s == SMTPAccepted
}

// MXResolver looks up mail exchangers. *net.Resolver satisfies it.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Prober asks a mail exchanger whether it accepts a recipient. A nil error
// means accepted.
type Prober interface {
	Probe(ctx context.Context, mxHost, email string) error
}

// Verifier checks addresses with an MX lookup and an optional RCPT probe.
// Results are cached for the Verifier's lifetime, which is one run.
type Verifier struct {
	resolver MXResolver
	prober   Prober
	logger   *zap.Logger

	mx     map[string][]*net.MX
	states map[string]State
}

// NewVerifier creates a Verifier. A nil prober disables the SMTP probe.
func NewVerifier(resolver MXResolver, prober Prober, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		resolver: resolver,
		prober:   prober,
		logger:   logger,
		mx:       make(map[string][]*net.MX),
		states:   make(map[string]State),
	}
}

// MX returns the domain's mail exchangers ordered by preference. Lookup
// failures yield an empty list.
func (v *Verifier) MX(ctx context.Context, domain string) []*net.MX {
	domain = strings.ToLower(domain)
	if records, ok := v.mx[domain]; ok {
		return records
	}
	records, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		v.logger.Debug("mx lookup failed", zap.String("domain", domain), zap.Error(err))
		records = nil
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Pref < records[j].Pref })
	v.mx[domain] = records
	return records
}

// HasMX reports whether the domain can receive mail.
func (v *Verifier) HasMX(ctx context.Context, domain string) bool {
	return len(v.MX(ctx, domain)) > 0
}

// Verify returns the state of one address. A missing MX rejects the address.
// Only an explicit 5xx reply to RCPT rejects it at the SMTP stage; probe
// failures of any other kind leave it accepted.
func (v *Verifier) Verify(ctx context.Context, email string) State {
	email = strings.ToLower(email)
	if s, ok := v.states[email]; ok {
		return s
	}

	s := v.verify(ctx, email)
	v.states[email] = s
	v.logger.Debug("verified email", zap.String("email", email), zap.Stringer("state", s))
	return s
}

func (v *Verifier) verify(ctx context.Context, email string) State {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return Rejected
	}
	records := v.MX(ctx, domain)
	if len(records) == 0 {
		return Rejected
	}
	if v.prober == nil {
		return MXValid
	}

	host := strings.TrimSuffix(records[0].Host, ".")
	err := v.prober.Probe(ctx, host, email)
	if err == nil {
		return SMTPAccepted
	}
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) && smtpErr.Code >= 500 && smtpErr.Code < 600 {
		return Rejected
	}
	v.logger.Debug("probe inconclusive", zap.String("email", email), zap.Error(err))
	return SMTPAccepted
}

// Filter returns the deliverable addresses in their original order.
func (v *Verifier) Filter(ctx context.Context, emails []string) []string {
	var out []string
	for _, em := range emails {
		if v.Verify(ctx, em).Deliverable() {
			out = append(out, em)
		}
	}
	return out
}
