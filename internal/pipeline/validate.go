package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// The submission profile: every named slot must carry an upload before any
// expensive work starts.
var requiredSlots = []string{
	SlotIdentityCard,
	SlotFitnessCertificate,
	"tax_registration",
	"chamber_of_commerce",
	"intent_letter",
	"acceptance_letter",
	"comptroller_record",
	"attorney_record",
	"police_record",
	"corrective_measures_record",
}

// Free-text metadata fields carried alongside the uploads.
var metadataFields = []string{"physical_address", "regional_residence"}

// notProvided fills metadata fields the submitter left blank.
const notProvided = "not provided"

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// minUploadBytes rejects empty or token uploads before OCR ever runs.
const minUploadBytes = 10 * 1024

// ValidationError reports everything wrong with a submission at once, so
// the submitter fixes one round trip instead of several.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing documents: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, strings.Join(e.Invalid, "; "))
	}
	return strings.Join(parts, "; ")
}

// validate checks slot presence, file extensions, and minimum sizes. It
// returns nil when the submission is acceptable.
func validate(sub Submission) *ValidationError {
	verr := &ValidationError{}

	byField := make(map[string]Upload, len(sub.Uploads))
	for _, u := range sub.Uploads {
		byField[u.Field] = u
	}

	for _, slot := range requiredSlots {
		u, ok := byField[slot]
		if !ok {
			verr.Missing = append(verr.Missing, slot)
			continue
		}
		switch {
		case u.Name == "" || !allowedExtension(u.Name):
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s: invalid or unreadable file", slot))
		case len(u.Data) < minUploadBytes:
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s: file is empty or unreadable", slot))
		}
	}

	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}
	return verr
}

func allowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}
