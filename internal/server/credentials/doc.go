// Package credentials verifies customer passwords against the hash formats
// found in a WordPress users table and produces the canonical bcrypt hash
// that accounts are migrated to on their next successful login.
//
// Verification tries the stored formats in a fixed order (phpass, bcrypt,
// "$wp"-prefixed bcrypt with and without the HMAC-SHA384 pre-hash) and
// only then, when nothing matched locally, asks a RemoteAuthenticator.
// The result is an Outcome that names the scheme which matched; callers
// decide whether to rewrite the stored hash with Outcome.NeedsMigration.
package credentials
