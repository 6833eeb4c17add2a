package credentials

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"strings"
)

const phpassItoa64 = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// phpassDefaultCountLog2 is what WordPress' PasswordHash(8, true) writes
// ("$P$B" hashes).
const phpassDefaultCountLog2 = 13

// checkPhpass reports whether secret matches a portable phpass hash.
func checkPhpass(secret, stored string) bool {
	computed, ok := phpassCrypt(secret, stored)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}

// phpassCrypt computes the portable hash of secret using the marker,
// iteration count and salt encoded in the first 12 bytes of setting.
func phpassCrypt(secret, setting string) (string, bool) {
	if len(setting) < 12 {
		return "", false
	}
	if id := setting[:3]; id != phpassMarker && id != phpassMarkerAlt {
		return "", false
	}
	countLog2 := strings.IndexByte(phpassItoa64, setting[3])
	if countLog2 < 7 || countLog2 > 30 {
		return "", false
	}
	salt := setting[4:12]

	sum := md5.Sum([]byte(salt + secret))
	hash := sum[:]
	for count := 1 << countLog2; count > 0; count-- {
		sum = md5.Sum(append(hash, secret...))
		hash = sum[:]
	}

	return setting[:12] + phpassEncode64(hash, len(hash)), true
}

func phpassEncode64(input []byte, count int) string {
	var out strings.Builder
	i := 0
	for i < count {
		value := int(input[i])
		i++
		out.WriteByte(phpassItoa64[value&0x3f])
		if i < count {
			value |= int(input[i]) << 8
		}
		out.WriteByte(phpassItoa64[(value>>6)&0x3f])
		if i >= count {
			break
		}
		i++
		if i < count {
			value |= int(input[i]) << 16
		}
		out.WriteByte(phpassItoa64[(value>>12)&0x3f])
		if i >= count {
			break
		}
		i++
		out.WriteByte(phpassItoa64[(value>>18)&0x3f])
	}
	return out.String()
}

// HashPhpass produces a portable phpass hash the way WordPress did before
// 6.8. It exists for seeding fixtures; new credentials use Hasher.
func HashPhpass(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	salt := make([]byte, 6)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	setting := phpassMarker + string(phpassItoa64[phpassDefaultCountLog2]) + phpassEncode64(salt, len(salt))
	hash, ok := phpassCrypt(secret, setting)
	if !ok {
		return "", errors.New("phpass: invalid setting")
	}
	return hash, nil
}
