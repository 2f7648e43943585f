package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintIterations is the SHA256 iteration count for actor hashing.
// High enough to make offline reversal of IPs and contacts impractical.
const FingerprintIterations = 5000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// ActorFingerprint hashes a network address with a salt. The raw address is
// never stored; the fingerprint is the only actor key the system keeps.
func ActorFingerprint(networkAddr, salt string) string {
	return IteratedSHA256(salt+networkAddr, FingerprintIterations)
}

// ContactHash hashes a normalized self-reported contact string with a salt.
func ContactHash(contact, salt string) string {
	return IteratedSHA256(salt+contact, FingerprintIterations)
}
