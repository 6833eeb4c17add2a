package credentials

import (
	"context"

	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

// RemoteAuthenticator asks an authoritative system whether identifier and
// secret form a valid login.
type RemoteAuthenticator interface {
	AttemptLogin(ctx context.Context, identifier, secret string) (bool, error)
}

// Verifier checks secrets against stored credentials.
type Verifier struct {
	remote RemoteAuthenticator
	cost   int
	logger logging.Logger
}

// NewVerifier builds a Verifier. remote may be nil to disable the remote
// fallback. cost is the bcrypt cost canonical hashes are expected to have.
func NewVerifier(remote RemoteAuthenticator, cost int, logger logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Verifier{remote: remote, cost: cost, logger: logger}
}

// Verify reports whether secret matches record. Mismatches are not errors.
// When no local scheme matches and accountHint is non-empty the remote
// authenticator is consulted once; its failures count as a mismatch.
func (v *Verifier) Verify(ctx context.Context, secret string, record Record, accountHint string) Outcome {
	if secret == "" {
		return Outcome{}
	}

	if out := v.verifyLocal(secret, record.HashText); out.Matched {
		return out
	}

	if accountHint == "" || v.remote == nil {
		return Outcome{}
	}

	ok, err := v.remote.AttemptLogin(ctx, accountHint, secret)
	if err != nil {
		v.logger.Warn(ctx, "remote fallback failed", "account_id", record.AccountID, "error", err)
		return Outcome{}
	}
	if !ok {
		return Outcome{}
	}
	return Outcome{Matched: true, Scheme: RemoteFallback}
}

func (v *Verifier) verifyLocal(secret, hashText string) Outcome {
	switch DetectFormat(hashText) {
	case FormatPhpass:
		if checkPhpass(secret, hashText) {
			return Outcome{Matched: true, Scheme: LegacyPhpass}
		}

	case FormatBcrypt:
		hash := normalizeBcrypt(hashText)
		if compareBcrypt(hash, secret) {
			return Outcome{Matched: true, Scheme: CanonicalModern, Rehash: v.weak(hash)}
		}

	case FormatWordPressBcrypt:
		inner := normalizeBcrypt(hashText[len(wordpressMarker):])
		if compareBcrypt(inner, prehash(secret)) {
			return Outcome{Matched: true, Scheme: LegacyWithPrefixAndPrehash}
		}
		if compareBcrypt(inner, secret) {
			return Outcome{Matched: true, Scheme: LegacyWithPrefixDirect}
		}

	case FormatUnknown:
		// Only crypt(3) could have produced these; the remote site still can.
	}
	return Outcome{}
}

func (v *Verifier) weak(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return cost < v.cost
}

// compareBcrypt treats malformed hashes like a wrong secret.
func compareBcrypt(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
