package auth

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"vetrina-server-go/internal/domain/session"
	platformerrors "vetrina-server-go/internal/platform/errors"
)

// Login failure reasons surfaced to the transport layer.
const (
	ReasonInvalidPassword = "invalid_password"
	ReasonInvalidTotp     = "invalid_totp"
	ReasonLocked          = "locked"
)

// LoginError carries the typed outcome of a rejected login attempt.
type LoginError struct {
	Reason            string
	AttemptsRemaining int
	RetryAfter        time.Duration
}

func (e *LoginError) Error() string {
	if e.Reason == ReasonLocked {
		return fmt.Sprintf("login locked for %s", e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("login rejected: %s (%d attempts remaining)", e.Reason, e.AttemptsRemaining)
}

// Credentials holds the configured factors the gate verifies against.
type Credentials struct {
	// PasswordHash is the bcrypt hash of the operator password.
	PasswordHash string
	// TOTPSecret is the shared secret for the time-based second factor.
	TOTPSecret string
	// StaticToken is a legacy authorize-only bridge; empty disables it.
	StaticToken string
	// StaticTokenExpires shuts the bridge off after the given instant.
	// Zero means no expiry, which should only survive in dev configs.
	StaticTokenExpires time.Time
}

// Options wires the gate's collaborators.
type Options struct {
	Credentials Credentials
	Sessions    *session.Manager
	Throttle    *Throttle
	Logger      session.Logger
	// Sleep is injectable so tests avoid the real login delay.
	Sleep func(time.Duration)
}

// Gate orchestrates password+TOTP verification, session issuance and
// request authorization.
type Gate struct {
	creds    Credentials
	sessions *session.Manager
	throttle *Throttle
	logger   session.Logger
	sleep    func(time.Duration)
	now      func() time.Time
}

// NewGate validates the wiring and builds a Gate.
func NewGate(opts Options) (*Gate, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("auth gate requires a session manager")
	}
	if opts.Throttle == nil {
		return nil, fmt.Errorf("auth gate requires a throttle")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("auth gate requires a logger")
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Gate{
		creds:    opts.Credentials,
		sessions: opts.Sessions,
		throttle: opts.Throttle,
		logger:   opts.Logger,
		sleep:    sleep,
		now:      time.Now,
	}, nil
}

// Configured reports whether both factors have been provisioned. Login is
// refused outright when they have not.
func (g *Gate) Configured() bool {
	return g.creds.PasswordHash != "" && g.creds.TOTPSecret != ""
}

// Login runs the full two-factor exchange. The randomized delay applies to
// every attempt regardless of outcome so response timing leaks nothing.
func (g *Gate) Login(ctx context.Context, password, totpCode, clientAddress string) (session.Session, error) {
	status := g.throttle.Check(clientAddress)
	if !status.Allowed {
		return session.Session{}, &LoginError{Reason: ReasonLocked, RetryAfter: status.LockedFor}
	}

	g.sleep(time.Duration(300+rand.Intn(200)) * time.Millisecond)

	if !g.Configured() {
		return session.Session{}, platformerrors.New(platformerrors.KindConfig, "auth.login", "admin credentials not configured")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(g.creds.PasswordHash), []byte(password)); err != nil {
		return session.Session{}, g.recordFailure(clientAddress, ReasonInvalidPassword)
	}

	if !g.validTotp(totpCode) {
		return session.Session{}, g.recordFailure(clientAddress, ReasonInvalidTotp)
	}

	g.throttle.Reset(clientAddress)
	issued, err := g.sessions.Issue(ctx, clientAddress)
	if err != nil {
		return session.Session{}, platformerrors.Wrap(platformerrors.KindStorage, "auth.login", "failed to issue session", err)
	}
	g.logger.Info("operator login from %s", clientAddress)
	return issued, nil
}

// Authorize reports whether the bearer token grants admin access. The static
// legacy token is accepted here only, never minting sessions; a store error
// on that path denies conservatively.
func (g *Gate) Authorize(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	if g.staticTokenActive() && token == g.creds.StaticToken {
		g.logger.Warn("request authorized via legacy static token")
		return true
	}
	ok, err := g.sessions.Validate(ctx, token)
	if err != nil {
		g.logger.Error("session validation unavailable, denying: %v", err)
		return false
	}
	return ok
}

// Logout revokes the session. Unknown tokens are not an error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	return g.sessions.Revoke(ctx, token)
}

func (g *Gate) recordFailure(clientAddress, reason string) error {
	status := g.throttle.RecordFailure(clientAddress)
	g.logger.Warn("failed login (%s) from %s", reason, clientAddress)
	if !status.Allowed {
		return &LoginError{Reason: ReasonLocked, RetryAfter: status.LockedFor}
	}
	return &LoginError{Reason: reason, AttemptsRemaining: status.AttemptsRemaining}
}

// validTotp checks the code against the shared secret, allowing one step of
// clock drift in each direction.
func (g *Gate) validTotp(code string) bool {
	ok, err := totp.ValidateCustom(code, g.creds.TOTPSecret, g.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (g *Gate) staticTokenActive() bool {
	if g.creds.StaticToken == "" {
		return false
	}
	if g.creds.StaticTokenExpires.IsZero() {
		return true
	}
	return g.now().Before(g.creds.StaticTokenExpires)
}
