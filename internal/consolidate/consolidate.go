// Package consolidate merges field values extracted from multiple sources
// into one record per submission and computes its overall completeness.
//
// The only document with two extraction sources is the identity card: the
// machine-readable zone and the text-generation service can disagree, and
// the merge policy decides which one wins per field.
package consolidate

import (
	"fmt"
	"strings"

	"github.com/solivar/docintake/internal/extract"
	"github.com/solivar/docintake/internal/mrz"
)

// InitialStatus is the status every freshly analyzed submission gets. No
// other status is ever assigned at creation time.
const InitialStatus = "pending admin review"

// Options tune the identity merge policy.
type Options struct {
	// OverrideBirthDate lets an MRZ-derived birth date replace a non-blank
	// service value. Off by default: the printed date on the card face is
	// usually more reliable than a date recovered from a noisy zone read.
	OverrideBirthDate bool
}

// MergeIdentity applies zone-derived fields onto the service extraction.
//
// The ID number from a valid zone read always wins; without one the service
// value is canonicalized to bare digits. Names override field by field, each
// only when the zone produced a non-empty value. The birth date is
// asymmetric: the zone value only fills a blank service value, unless
// Options says otherwise. MRZDetected records zone validity regardless of
// whether any field was contributed.
func MergeIdentity(res extract.IdentityResult, mrzValid bool, f mrz.Fields, opts Options) extract.IdentityResult {
	if !mrzValid {
		f = mrz.Fields{}
	}

	if f.IDNumber != "" {
		res.IDNumber = f.IDNumber
	} else {
		res.IDNumber = mrz.CanonicalizeID(res.IDNumber)
	}

	if f.Surnames != "" {
		res.Surnames = f.Surnames
	}
	if f.GivenNames != "" {
		res.GivenNames = f.GivenNames
	}

	if f.BirthDate != "" {
		if strings.TrimSpace(res.BirthDate) == "" || opts.OverrideBirthDate {
			res.BirthDate = f.BirthDate
		}
	}

	res.MRZDetected = mrzValid
	return res
}

// Complete ANDs the ok flags of every required sub-result.
func Complete(flags ...bool) bool {
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}

// StatusMessage builds the human-readable analysis verdict shown to the
// submitter.
func StatusMessage(complete bool, identity extract.IdentityResult, cert extract.CertificateResult) string {
	var notes []string
	if !identity.OK {
		if len(identity.MissingFields) > 0 {
			notes = append(notes, fmt.Sprintf("Identity document has observations: %s.",
				strings.Join(identity.MissingFields, ", ")))
		} else {
			notes = append(notes, "Identity document has observations: check that the scan is legible.")
		}
	}
	if !cert.OK {
		if strings.EqualFold(cert.DetectedType, "affiliation") {
			notes = append(notes, "An affiliation certificate was uploaded; a medical fitness certificate is required.")
		} else if len(cert.MissingFields) > 0 {
			notes = append(notes, fmt.Sprintf("Certificate has observations: %s.",
				strings.Join(cert.MissingFields, ", ")))
		} else {
			notes = append(notes, "Certificate has observations: fields are missing.")
		}
	}

	msg := "Documents INCOMPLETE."
	if complete {
		msg = "Documents complete."
	}
	if len(notes) > 0 {
		msg += " " + strings.Join(notes, " ")
	}
	return msg
}

// Pair is one labeled value of a display summary, kept as a slice so
// rendering order is stable.
type Pair struct {
	Label string
	Value string
}

// IdentitySummary condenses the merged identity result for display.
func IdentitySummary(res extract.IdentityResult) []Pair {
	return []Pair{
		{"ID number", strings.TrimSpace(res.IDNumber)},
		{"Given names", strings.TrimSpace(res.GivenNames)},
		{"Surnames", strings.TrimSpace(res.Surnames)},
		{"Birth date", strings.TrimSpace(res.BirthDate)},
		{"Headers valid", fmt.Sprintf("%v", res.HeadersValid)},
		{"Republic detected", fmt.Sprintf("%v", res.RepublicDetected)},
		{"MRZ detected", fmt.Sprintf("%v", res.MRZDetected)},
	}
}

// CertificateSummary condenses the certificate result for display.
func CertificateSummary(res extract.CertificateResult) []Pair {
	kind := strings.ToLower(strings.TrimSpace(res.DetectedType))
	if kind == "" {
		kind = "unknown"
	}
	return []Pair{
		{"Detected type", kind},
		{"Patient name", strings.TrimSpace(res.PatientName)},
		{"Date", strings.TrimSpace(res.Date)},
		{"Outcome", strings.TrimSpace(res.Outcome)},
		{"Physician", strings.TrimSpace(res.PhysicianName)},
		{"Professional registry", strings.TrimSpace(res.ProfessionalRegistry)},
		{"Signature detected", fmt.Sprintf("%v", res.SignatureDetected)},
	}
}
