// Package identity derives a best-effort actor identity from an inbound
// submission. The system is intentionally anonymous: the only durable actor
// keys are the salted fingerprint of the network address and, when a contact
// is self-reported, its normalized hash.
package identity

import (
	"strings"

	"github.com/breilly1296/HealthcareProviderDB--sub002/pkg/hash"
)

// ActorIdentity is the per-request identity signal set.
type ActorIdentity struct {
	// Fingerprint is the salted hash of the caller's network address.
	Fingerprint string
	// ContactHash is the salted hash of the normalized self-reported
	// contact, or "" when none was provided.
	ContactHash string
	// ClientSignal is an opaque client hint (user agent class etc.),
	// truncated and kept only for abuse investigation.
	ClientSignal string
}

const maxClientSignalLen = 128

// Extractor builds ActorIdentity values using a fixed salt.
type Extractor struct {
	salt string
}

func NewExtractor(salt string) *Extractor {
	return &Extractor{salt: salt}
}

// Extract derives the identity signals for one request. networkAddr is the
// upstream-resolved client address; contact is the raw self-reported contact
// string, which is hashed and discarded.
func (e *Extractor) Extract(networkAddr, contact, clientSignal string) ActorIdentity {
	id := ActorIdentity{
		Fingerprint:  hash.ActorFingerprint(networkAddr, e.salt),
		ClientSignal: truncate(strings.TrimSpace(clientSignal), maxClientSignalLen),
	}
	if c := NormalizeContact(contact); c != "" {
		id.ContactHash = hash.ContactHash(c, e.salt)
	}
	return id
}

// NormalizeContact lowercases and trims a contact string so trivially
// restyled contacts ("Bob@X.com " vs "bob@x.com") dedupe to the same hash.
func NormalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
