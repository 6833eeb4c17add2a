package credentials

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrSecretTooLong is returned for secrets bcrypt cannot hash without
// truncation.
var ErrSecretTooLong = errors.New("secret longer than 72 bytes")

// Hasher produces canonical credentials.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost. Out-of-range
// costs fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost is the bcrypt cost of hashes produced by h.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns the canonical "$2y$" bcrypt hash of secret, the variant
// WordPress itself reads and writes.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrSecretTooLong
		}
		return "", err
	}
	return toPHPVariant(string(out)), nil
}

// HashWordPress produces a WordPress 6.8 style "$wp$2y$" hash: bcrypt over
// the base64 HMAC-SHA384 pre-hash of secret. It is also the stored form
// of secrets too long for Hash.
func (h *Hasher) HashWordPress(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(prehash(secret)), h.cost)
	if err != nil {
		return "", err
	}
	return wordpressMarker + toPHPVariant(string(out)), nil
}

// prehash is base64(HMAC-SHA384(key "wp-sha384", secret)).
func prehash(secret string) string {
	mac := hmac.New(sha512.New384, []byte(wordpressPrehashK))
	mac.Write([]byte(secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func toPHPVariant(hash string) string {
	for _, v := range []string{"$2a$", "$2b$"} {
		if strings.HasPrefix(hash, v) {
			return "$2y$" + hash[len(v):]
		}
	}
	return hash
}

// BcryptCost reports the cost of a bcrypt or "$wp"-prefixed bcrypt hash.
func BcryptCost(hashText string) (int, bool) {
	switch DetectFormat(hashText) {
	case FormatBcrypt:
	case FormatWordPressBcrypt:
		hashText = hashText[len(wordpressMarker):]
	default:
		return 0, false
	}
	cost, err := bcrypt.Cost([]byte(normalizeBcrypt(hashText)))
	if err != nil {
		return 0, false
	}
	return cost, true
}
