package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
)

// Generator produces payload fingerprints for the idempotency registry
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Fingerprint returns a stable digest of a raw payload, stored alongside
// the event id so replays with altered bodies are distinguishable
func (g *Generator) Fingerprint(payload []byte) string {
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}
