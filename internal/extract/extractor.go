package extract

import (
	"context"
	"fmt"
)

// defaultMaxChars caps how much OCR text rides along in one prompt.
const defaultMaxChars = 12000

// identityPrompt asks for the national identity card schema. Field copying
// is literal: the service must never invent numbers or dates, and uncertain
// fields go empty and into missing_fields.
const identityPrompt = `You are a verifier of COLOMBIAN NATIONAL IDENTITY CARDS. You will receive plain OCR TEXT (no images).
Copy fields literally when they appear; when absent or doubtful, leave "" (empty) and add them to missing_fields.
Never invent numbers or dates.
Return ONLY JSON with keys:
{
  "ok": boolean,
  "missing_fields": [string],
  "id_number": string,
  "given_names": string,
  "surnames": string,
  "birth_date": string,
  "issue_place": string,
  "issue_date": string,
  "headers_valid": boolean,
  "republic_detected": boolean,
  "mrz_detected": boolean
}
Criterion ok=true: headers_valid=true AND republic_detected=true AND mrz_detected=true AND id_number != "".
OCR_TEXT:`

// certificatePrompt asks for the occupational fitness certificate schema.
const certificatePrompt = `You are a verifier of OCCUPATIONAL MEDICAL FITNESS CERTIFICATES. You will receive plain OCR TEXT.
Never invent data. Copy exactly what you see.
Return ONLY JSON with keys:
{
  "ok": boolean,
  "missing_fields": [string],
  "detected_type": "medical"|"affiliation"|"other",
  "patient_name": string,
  "date": string,
  "outcome": "FIT"|"NOT FIT"|"OTHER",
  "physician_name": string,
  "professional_registry": string,
  "signature_detected": boolean
}
Criterion ok=true: detected_type="medical" AND outcome present AND (physician_name or professional_registry) present AND date present.
OCR_TEXT:`

// IdentityResult is the structured reading of a national identity card.
type IdentityResult struct {
	Meta
	IDNumber         string `json:"id_number"`
	GivenNames       string `json:"given_names"`
	Surnames         string `json:"surnames"`
	BirthDate        string `json:"birth_date"`
	IssuePlace       string `json:"issue_place"`
	IssueDate        string `json:"issue_date"`
	HeadersValid     bool   `json:"headers_valid"`
	RepublicDetected bool   `json:"republic_detected"`
	MRZDetected      bool   `json:"mrz_detected"`
}

// CertificateResult is the structured reading of a medical fitness
// certificate.
type CertificateResult struct {
	Meta
	DetectedType         string `json:"detected_type"`
	PatientName          string `json:"patient_name"`
	Date                 string `json:"date"`
	Outcome              string `json:"outcome"`
	PhysicianName        string `json:"physician_name"`
	ProfessionalRegistry string `json:"professional_registry"`
	SignatureDetected    bool   `json:"signature_detected"`
}

// Completer is the generation call the extractor depends on. *Client
// satisfies it; tests substitute canned responses.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor runs the per-profile structured extractions.
type Extractor struct {
	client   Completer
	maxChars int
}

// NewExtractor wires an extractor to a completer. maxChars caps the OCR text
// included per prompt; values below 1 select the default.
func NewExtractor(client Completer, maxChars int) *Extractor {
	if maxChars < 1 {
		maxChars = defaultMaxChars
	}
	return &Extractor{client: client, maxChars: maxChars}
}

// Identity extracts identity-card fields from OCR text. Transport errors
// propagate; an unparseable response degrades to the sentinel result.
func (e *Extractor) Identity(ctx context.Context, ocrText string) (IdentityResult, error) {
	content, err := e.client.Complete(ctx, e.compose(identityPrompt, ocrText))
	if err != nil {
		return IdentityResult{}, fmt.Errorf("identity extraction: %w", err)
	}
	var res IdentityResult
	if !recoverObject(content, &res) {
		res = IdentityResult{}
		res.markUnparseable(content)
	}
	return res, nil
}

// Certificate extracts medical-certificate fields from OCR text, with the
// same error policy as Identity.
func (e *Extractor) Certificate(ctx context.Context, ocrText string) (CertificateResult, error) {
	content, err := e.client.Complete(ctx, e.compose(certificatePrompt, ocrText))
	if err != nil {
		return CertificateResult{}, fmt.Errorf("certificate extraction: %w", err)
	}
	var res CertificateResult
	if !recoverObject(content, &res) {
		res = CertificateResult{}
		res.markUnparseable(content)
	}
	return res, nil
}

func (e *Extractor) compose(prompt, ocrText string) string {
	if runes := []rune(ocrText); len(runes) > e.maxChars {
		ocrText = string(runes[:e.maxChars])
	}
	return prompt + "\n\"\"\"\n" + ocrText + "\n\"\"\"\n"
}
