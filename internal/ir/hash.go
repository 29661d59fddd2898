package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainIdentity is the domain prefix for identity keys.
// Version suffix enables future algorithm migration.
const DomainIdentity = "racetrack/identity/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Key computes the identity key of a record: a stable string that is equal
// for two records exactly when they have the same type and equal fields,
// independent of field order. Strings compare byte for byte.
//
// Callers pass identity records; the key of a full record is well defined
// but is not an entity identity.
func (r *Record) Key() string {
	return hashWithDomain(DomainIdentity, MarshalCanonical(r))
}
