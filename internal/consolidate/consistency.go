package consolidate

import (
	"fmt"
	"strings"

	"github.com/solivar/docintake/internal/extract"
)

// Sighting is one name/ID observation contributed by a supporting document
// (tax registration, background certificates, and the like). Either field
// may be empty.
type Sighting struct {
	Name string
	ID   string
}

// CheckConsistency compares the person's name and ID number as seen across
// the identity document, the certificate, and any supporting documents.
// Mismatches produce advisory alerts; they never block completion. match is
// true when no alert was raised.
func CheckConsistency(identity extract.IdentityResult, cert extract.CertificateResult, extra []Sighting) (alerts []string, match bool) {
	var names, ids []string

	if identity.GivenNames != "" && identity.Surnames != "" {
		names = append(names, identity.Surnames+" "+identity.GivenNames)
	}
	if identity.IDNumber != "" {
		ids = append(ids, identity.IDNumber)
	}
	if cert.PatientName != "" {
		names = append(names, cert.PatientName)
	}
	for _, s := range extra {
		if s.Name != "" {
			names = append(names, s.Name)
		}
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}

	if d := distinct(names); len(d) > 1 {
		alerts = append(alerts, fmt.Sprintf("Names do not match across documents: %s", strings.Join(d, " / ")))
	}
	if d := distinct(ids); len(d) > 1 {
		alerts = append(alerts, fmt.Sprintf("ID numbers do not match across documents: %s", strings.Join(d, " / ")))
	}
	return alerts, len(alerts) == 0
}

// distinct reduces values to their unique members, comparing case- and
// whitespace-insensitively but reporting the first spelling seen.
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		key := strings.Join(strings.Fields(strings.ToLower(v)), " ")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
