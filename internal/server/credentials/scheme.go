package credentials

import "strings"

// Scheme identifies how a secret was verified.
type Scheme int

const (
	Unrecognized Scheme = iota
	CanonicalModern
	LegacyWithPrefixAndPrehash
	LegacyWithPrefixDirect
	LegacyPhpass
	RemoteFallback
)

func (s Scheme) String() string {
	switch s {
	case CanonicalModern:
		return "canonical_modern"
	case LegacyWithPrefixAndPrehash:
		return "legacy_prefix_prehash"
	case LegacyWithPrefixDirect:
		return "legacy_prefix_direct"
	case LegacyPhpass:
		return "legacy_phpass"
	case RemoteFallback:
		return "remote_fallback"
	default:
		return "unrecognized"
	}
}

// Format is the layout of a stored hash, read from its prefix.
type Format int

const (
	FormatUnknown Format = iota
	FormatPhpass
	FormatBcrypt
	FormatWordPressBcrypt
)

func (f Format) String() string {
	switch f {
	case FormatPhpass:
		return "phpass"
	case FormatBcrypt:
		return "bcrypt"
	case FormatWordPressBcrypt:
		return "wordpress-bcrypt"
	default:
		return "unknown"
	}
}

const (
	phpassMarker      = "$P$"
	phpassMarkerAlt   = "$H$"
	bcryptMarker      = "$2"
	wordpressMarker   = "$wp"
	wordpressPrehashK = "wp-sha384"
)

// DetectFormat classifies hashText by its prefix. A "$wp" prefix counts
// only when what follows is a bcrypt hash.
func DetectFormat(hashText string) Format {
	switch {
	case strings.HasPrefix(hashText, phpassMarker), strings.HasPrefix(hashText, phpassMarkerAlt):
		return FormatPhpass
	case strings.HasPrefix(hashText, bcryptMarker):
		return FormatBcrypt
	case strings.HasPrefix(hashText, wordpressMarker) && strings.HasPrefix(hashText[len(wordpressMarker):], bcryptMarker):
		return FormatWordPressBcrypt
	default:
		return FormatUnknown
	}
}

// normalizeBcrypt rewrites the PHP "$2y$" variant to "$2b$". Both denote
// the same algorithm.
func normalizeBcrypt(hash string) string {
	if strings.HasPrefix(hash, "$2y$") {
		return "$2b$" + hash[len("$2y$"):]
	}
	return hash
}
