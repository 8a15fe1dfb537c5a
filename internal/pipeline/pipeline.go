// Package pipeline runs a full submission analysis: validate the uploads,
// store them, rasterize and OCR the analyzable documents, hunt for a
// machine-readable zone, run structured extraction, and consolidate
// everything into one record attached to the pending workflow state.
//
// Processing is synchronous: a submission runs in its caller's goroutine to
// completion or a surfaced failure. There is no background queue and no
// cancellation beyond the context handed to the extraction calls.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/solivar/docintake/internal/consolidate"
	"github.com/solivar/docintake/internal/extract"
	"github.com/solivar/docintake/internal/mrz"
	"github.com/solivar/docintake/internal/raster"
	"github.com/solivar/docintake/internal/workflow"
)

// The two slots that get full OCR and structured extraction. The remaining
// slots are stored and passed through.
const (
	SlotIdentityCard       = "identity_card"
	SlotFitnessCertificate = "fitness_certificate"
)

// mrzMarker introduces recovered zone text appended to the identity OCR
// text before structured extraction.
const mrzMarker = "\n\n[MRZ]\n"

// TextReader is the OCR surface the pipeline needs. *ocr.Engine satisfies
// it; it is shared across submissions and must serialize internally.
type TextReader interface {
	PlainText(img image.Image) (string, error)
	MRZLine(img image.Image) (string, error)
	MRZBlock(img image.Image) (string, error)
}

// FieldExtractor runs the structured extractions against the generation
// service.
type FieldExtractor interface {
	Identity(ctx context.Context, ocrText string) (extract.IdentityResult, error)
	Certificate(ctx context.Context, ocrText string) (extract.CertificateResult, error)
}

// Upload is one named document slot of a submission.
type Upload struct {
	Field string
	Name  string
	Data  []byte
}

// Submission is everything a submitter hands over in one request.
type Submission struct {
	Owner    string
	Email    string
	Uploads  []Upload
	Metadata map[string]string
}

// Result is the consolidated outcome of one submission analysis.
type Result struct {
	Owner              string
	Items              []workflow.Item
	Identity           extract.IdentityResult
	Certificate        extract.CertificateResult
	IdentitySummary    []consolidate.Pair
	CertificateSummary []consolidate.Pair
	Supporting         map[string]string
	Metadata           map[string]string
	MRZ                string
	Complete           bool
	Status             string
	Message            string
	Alerts             []string
	Match              bool
	Failures           []string
}

// Options tune a Pipeline.
type Options struct {
	Raster      raster.Options
	Country     string
	BirthPivot  int
	Consolidate consolidate.Options
}

// Pipeline wires the analysis stages together. Construct once and share;
// per-submission state lives on the stack of Process.
type Pipeline struct {
	reader  TextReader
	locator *mrz.Locator
	fields  FieldExtractor
	store   *workflow.DirStore
	opts    Options
}

func New(reader TextReader, fields FieldExtractor, store *workflow.DirStore, opts Options) *Pipeline {
	if opts.BirthPivot == 0 {
		opts.BirthPivot = 30
	}
	return &Pipeline{
		reader:  reader,
		locator: mrz.NewLocator(reader, opts.Country),
		fields:  fields,
		store:   store,
		opts:    opts,
	}
}

// Process analyzes one submission. A *ValidationError means the submission
// was rejected before any expensive work; any other error is a storage
// failure. Sub-extraction failures do not abort siblings: they are recorded
// on the result and leave the affected sub-result not ok.
func (p *Pipeline) Process(ctx context.Context, sub Submission) (*Result, error) {
	if verr := validate(sub); verr != nil {
		return nil, verr
	}

	res := &Result{
		Owner:      sub.Owner,
		Supporting: make(map[string]string),
		Metadata:   make(map[string]string),
	}

	if err := p.store.SetOwnerEmail(sub.Owner, sub.Email); err != nil {
		return nil, fmt.Errorf("recording owner meta: %w", err)
	}

	saved := make(map[string]workflow.Item, len(sub.Uploads))
	for _, u := range sub.Uploads {
		item, err := p.store.Save(sub.Owner, u.Field, u.Name, u.Data)
		if err != nil {
			return nil, fmt.Errorf("storing %s: %w", u.Field, err)
		}
		saved[u.Field] = item
		res.Items = append(res.Items, item)
		if u.Field != SlotIdentityCard && u.Field != SlotFitnessCertificate {
			res.Supporting[u.Field] = "valid"
		}
	}

	for _, f := range metadataFields {
		if v := strings.TrimSpace(sub.Metadata[f]); v != "" {
			res.Metadata[f] = v
		} else {
			res.Metadata[f] = notProvided
		}
	}

	idFrames := p.rasterize(res, saved[SlotIdentityCard])
	certFrames := p.rasterize(res, saved[SlotFitnessCertificate])

	idText := p.plainText(res, SlotIdentityCard, idFrames)
	certText := p.plainText(res, SlotFitnessCertificate, certFrames)

	pats := p.locator.Patterns()
	mrzText := p.locator.LocatePages(frameImages(idFrames)).Text
	if !pats.Valid(mrzText) {
		mrzText = pats.FromPlainText(idText)
	}
	mrzValid := pats.Valid(mrzText)
	if mrzValid {
		res.MRZ = mrzText
		idText += mrzMarker + mrzText
	}

	identity, err := p.fields.Identity(ctx, idText)
	if err != nil {
		res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", SlotIdentityCard, err))
	}
	certificate, err := p.fields.Certificate(ctx, certText)
	if err != nil {
		res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", SlotFitnessCertificate, err))
	}

	var fields mrz.Fields
	if mrzValid {
		fields = pats.ParseFields(mrzText, p.opts.BirthPivot)
	}
	res.Identity = consolidate.MergeIdentity(identity, mrzValid, fields, p.opts.Consolidate)
	res.Certificate = certificate

	res.Complete = consolidate.Complete(res.Identity.OK, res.Certificate.OK)
	res.Status = consolidate.InitialStatus
	res.Message = consolidate.StatusMessage(res.Complete, res.Identity, res.Certificate)
	res.Alerts, res.Match = consolidate.CheckConsistency(res.Identity, res.Certificate, nil)
	res.IdentitySummary = consolidate.IdentitySummary(res.Identity)
	res.CertificateSummary = consolidate.CertificateSummary(res.Certificate)
	return res, nil
}

// rasterize turns one stored item into frames; an unreadable source yields
// no frames and a recorded failure.
func (p *Pipeline) rasterize(res *Result, item workflow.Item) []raster.Frame {
	path, err := p.store.Path(item.ID, workflow.StatePending)
	if err != nil {
		res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", item.Field, err))
		return nil
	}
	frames := raster.Frames(path, p.opts.Raster)
	if len(frames) == 0 {
		res.Failures = append(res.Failures, fmt.Sprintf("%s: no readable frames", item.Field))
	}
	return frames
}

// plainText OCRs every frame and joins the non-empty page texts. A frame
// that fails to read is logged and skipped; blank pages are a valid empty
// outcome, not an error.
func (p *Pipeline) plainText(res *Result, field string, frames []raster.Frame) string {
	var pages []string
	for _, fr := range frames {
		text, err := p.reader.PlainText(fr.Image)
		if err != nil {
			log.Printf("pipeline: %s frame %d: %v", field, fr.Index, err)
			res.Failures = append(res.Failures, fmt.Sprintf("%s: frame %d unreadable", field, fr.Index))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n")
}

func frameImages(frames []raster.Frame) []image.Image {
	imgs := make([]image.Image, len(frames))
	for i, fr := range frames {
		imgs[i] = fr.Image
	}
	return imgs
}
