package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/solivar/docintake/internal/extract"
	"github.com/solivar/docintake/internal/workflow"
)

// fakeReader hands back scripted page texts in call order and never finds
// anything on the specialized zone passes.
type fakeReader struct {
	texts []string
	call  int
}

func (f *fakeReader) PlainText(image.Image) (string, error) {
	i := f.call
	if i >= len(f.texts) {
		i = len(f.texts) - 1
	}
	f.call++
	return f.texts[i], nil
}

func (f *fakeReader) MRZLine(image.Image) (string, error)  { return "", nil }
func (f *fakeReader) MRZBlock(image.Image) (string, error) { return "", nil }

type fakeFields struct {
	identity    extract.IdentityResult
	identityErr error
	cert        extract.CertificateResult
	certErr     error

	identityText string
	certText     string
}

func (f *fakeFields) Identity(_ context.Context, text string) (extract.IdentityResult, error) {
	f.identityText = text
	return f.identity, f.identityErr
}

func (f *fakeFields) Certificate(_ context.Context, text string) (extract.CertificateResult, error) {
	f.certText = text
	return f.cert, f.certErr
}

// noisyPNG produces an image upload comfortably above the minimum size.
func noisyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	seed := uint32(12345)
	for i := range img.Pix {
		seed = seed*1664525 + 1013904223
		img.Pix[i] = uint8(seed >> 24)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	if buf.Len() < minUploadBytes {
		t.Fatalf("test image too small: %d bytes", buf.Len())
	}
	return buf.Bytes()
}

func fullSubmission(t *testing.T) Submission {
	t.Helper()
	img := noisyPNG(t)
	filler := bytes.Repeat([]byte("filler "), 2048)

	var uploads []Upload
	for _, slot := range requiredSlots {
		switch slot {
		case SlotIdentityCard, SlotFitnessCertificate:
			uploads = append(uploads, Upload{Field: slot, Name: slot + ".png", Data: img})
		default:
			uploads = append(uploads, Upload{Field: slot, Name: slot + ".pdf", Data: filler})
		}
	}
	return Submission{
		Owner:    "42",
		Email:    "ana@example.com",
		Uploads:  uploads,
		Metadata: map[string]string{"physical_address": "Calle 1 # 2-3"},
	}
}

func newTestPipeline(t *testing.T, reader *fakeReader, fields *fakeFields) (*Pipeline, *workflow.DirStore) {
	t.Helper()
	store, err := workflow.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	return New(reader, fields, store, Options{Country: "COL"}), store
}

const identityOCR = "REPUBLICA DE COLOMBIA\n" +
	"IDENTIFICACION PERSONAL\n" +
	"ICCOL1234567<<850612<F<<<<\n" +
	"GARCIA<<MARIA<<<<"

func TestProcessEndToEnd(t *testing.T) {
	reader := &fakeReader{texts: []string{identityOCR, "MEDICAL FITNESS CERTIFICATE"}}
	fields := &fakeFields{
		identity: extract.IdentityResult{
			Meta:     extract.Meta{OK: true},
			IDNumber: "99.999.999",
			Surnames: "Garsia",
		},
		cert: extract.CertificateResult{
			Meta:         extract.Meta{OK: true},
			DetectedType: "medical",
			PatientName:  "Garcia Maria",
			Outcome:      "FIT",
		},
	}
	p, store := newTestPipeline(t, reader, fields)

	res, err := p.Process(context.Background(), fullSubmission(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !res.Complete {
		t.Errorf("Complete = false, failures: %v", res.Failures)
	}
	if res.Status != "pending admin review" {
		t.Errorf("Status = %q", res.Status)
	}
	if res.Identity.IDNumber != "1234567" {
		t.Errorf("zone ID must override service value: got %q", res.Identity.IDNumber)
	}
	if res.Identity.Surnames != "Garcia" {
		t.Errorf("Surnames = %q", res.Identity.Surnames)
	}
	if res.Identity.BirthDate != "1985-06-12" {
		t.Errorf("BirthDate = %q", res.Identity.BirthDate)
	}
	if !res.Identity.MRZDetected {
		t.Error("MRZDetected not recorded")
	}
	if !strings.Contains(fields.identityText, "[MRZ]") {
		t.Error("identity extraction did not see the augmented text")
	}

	if len(res.Items) != len(requiredSlots) {
		t.Errorf("stored %d items, want %d", len(res.Items), len(requiredSlots))
	}
	pending, _ := store.ListByState(workflow.StatePending, "42")
	if len(pending) != len(requiredSlots) {
		t.Errorf("pending has %d items", len(pending))
	}
	if store.OwnerEmail("42") != "ana@example.com" {
		t.Error("owner email sidecar missing")
	}

	if len(res.Supporting) != len(requiredSlots)-2 {
		t.Errorf("Supporting = %v", res.Supporting)
	}
	if res.Metadata["physical_address"] != "Calle 1 # 2-3" {
		t.Errorf("metadata = %v", res.Metadata)
	}
	if res.Metadata["regional_residence"] != notProvided {
		t.Errorf("blank metadata field = %q", res.Metadata["regional_residence"])
	}
	if !res.Match {
		t.Errorf("consistency alerts: %v", res.Alerts)
	}
	if res.Message != "Documents complete." {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestProcessRejectsIncompleteSubmission(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeReader{texts: []string{""}}, &fakeFields{})

	sub := fullSubmission(t)
	sub.Uploads = sub.Uploads[:len(sub.Uploads)-2]

	_, err := p.Process(context.Background(), sub)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Missing) != 2 {
		t.Errorf("Missing = %v", verr.Missing)
	}
}

func TestProcessRejectsBadUploads(t *testing.T) {
	p, store := newTestPipeline(t, &fakeReader{texts: []string{""}}, &fakeFields{})

	sub := fullSubmission(t)
	for i := range sub.Uploads {
		switch sub.Uploads[i].Field {
		case "tax_registration":
			sub.Uploads[i].Data = []byte("tiny")
		case "intent_letter":
			sub.Uploads[i].Name = "letter.exe"
		}
	}

	_, err := p.Process(context.Background(), sub)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Invalid) != 2 {
		t.Errorf("Invalid = %v", verr.Invalid)
	}

	// Fail-fast: nothing may reach storage.
	pending, _ := store.ListByState(workflow.StatePending, "42")
	if len(pending) != 0 {
		t.Errorf("rejected submission stored %d items", len(pending))
	}
}

func TestProcessExtractionFailureKeepsSibling(t *testing.T) {
	reader := &fakeReader{texts: []string{identityOCR, "CERT TEXT"}}
	fields := &fakeFields{
		identityErr: errors.New("generation service returned 500"),
		cert: extract.CertificateResult{
			Meta:         extract.Meta{OK: true},
			DetectedType: "medical",
		},
	}
	p, _ := newTestPipeline(t, reader, fields)

	res, err := p.Process(context.Background(), fullSubmission(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Failures) == 0 || !strings.Contains(res.Failures[0], SlotIdentityCard) {
		t.Errorf("Failures = %v", res.Failures)
	}
	if !res.Certificate.OK {
		t.Error("sibling extraction should be unaffected")
	}
	if res.Complete {
		t.Error("failed sub-extraction cannot be complete")
	}
	if res.Status != "pending admin review" {
		t.Errorf("Status = %q", res.Status)
	}
}

func TestProcessWithoutReadableZone(t *testing.T) {
	reader := &fakeReader{texts: []string{"REPUBLICA DE COLOMBIA\nNO ZONE HERE", "CERT"}}
	fields := &fakeFields{
		identity: extract.IdentityResult{Meta: extract.Meta{OK: true}, IDNumber: "12.345.678"},
		cert:     extract.CertificateResult{Meta: extract.Meta{OK: true}},
	}
	p, _ := newTestPipeline(t, reader, fields)

	res, err := p.Process(context.Background(), fullSubmission(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Identity.MRZDetected {
		t.Error("MRZDetected must be false without a zone")
	}
	if res.Identity.IDNumber != "12345678" {
		t.Errorf("service ID must be canonicalized: %q", res.Identity.IDNumber)
	}
	if strings.Contains(fields.identityText, "[MRZ]") {
		t.Error("no zone text should be appended")
	}
	if res.MRZ != "" {
		t.Errorf("MRZ = %q", res.MRZ)
	}
}
