package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/target/harvester/internal/domain/model"
)

// IdentityHash fingerprints a posting by title, company and location. URL and source do
// not participate: the same listing seen on two boards yields the same hash.
func IdentityHash(title, company, location string) string {
	key := canonical(title) + "|" + canonical(company) + "|" + canonical(location)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// HashOf computes IdentityHash for a normalized posting.
func HashOf(p model.NormalizedPosting) string {
	return IdentityHash(p.Title, p.Company, p.Location)
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
