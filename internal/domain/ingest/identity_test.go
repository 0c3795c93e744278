package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/target/harvester/internal/domain/model"
)

func TestIdentityHash_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := IdentityHash("Backend Engineer", "Acme", "Remote")
	b := IdentityHash("  backend engineer", "ACME ", " remote ")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestIdentityHash_IgnoresURL(t *testing.T) {
	p1 := model.NormalizedPosting{Title: "Dev", Company: "Acme", Location: "NYC", URL: "https://a.example.com/1"}
	p2 := model.NormalizedPosting{Title: "Dev", Company: "Acme", Location: "NYC", URL: "https://b.example.org/9"}
	assert.Equal(t, HashOf(p1), HashOf(p2))
}

func TestIdentityHash_DistinguishesFields(t *testing.T) {
	assert.NotEqual(t, IdentityHash("Dev", "Acme", "NYC"), IdentityHash("Dev", "Acme", "SF"))
	assert.NotEqual(t, IdentityHash("Dev", "Acme", ""), IdentityHash("Dev", "", "Acme"))
}
