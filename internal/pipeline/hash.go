package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/ppiankov/covgate/internal/model"
)

// PassageSetHash fingerprints a passage set independent of input order.
// Passages are sorted by locator and each is hashed in JCS canonical form.
func PassageSetHash(passages []model.Passage) (string, error) {
	sorted := append([]model.Passage(nil), passages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if la, lb := a.Locator(), b.Locator(); la != lb {
			return la < lb
		}
		if a.Issuer != b.Issuer {
			return a.Issuer < b.Issuer
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		return a.Excerpt < b.Excerpt
	})

	h := sha256.New()
	for _, p := range sorted {
		raw, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("marshal %s: %w", p.Locator(), err)
		}
		canonical, err := jcs.Transform(raw)
		if err != nil {
			return "", fmt.Errorf("canonicalize %s: %w", p.Locator(), err)
		}
		h.Write(canonical)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RunID derives the run identifier from everything that determines the output
func RunID(catalogVersion, suffixVersion, passageHash string, entityIDs []string) string {
	var b strings.Builder
	b.WriteString(catalogVersion)
	b.WriteByte(0)
	b.WriteString(suffixVersion)
	b.WriteByte(0)
	b.WriteString(passageHash)
	for _, id := range entityIDs {
		b.WriteByte(0)
		b.WriteString(id)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}
