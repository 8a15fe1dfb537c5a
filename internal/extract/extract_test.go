package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestRecoverObject(t *testing.T) {
	plain := `{"ok":true,"missing_fields":[],"id_number":"12345678"}`

	tests := []struct {
		name    string
		content string
		wantOK  bool
	}{
		{"plain json", plain, true},
		{"fenced json", "```json\n" + plain + "\n```", true},
		{"bare fence", "```\n" + plain + "\n```", true},
		{"prose then object", "Here is the result you asked for: " + plain, true},
		{"prose only", "I could not find any identity fields in the text.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		var res IdentityResult
		got := recoverObject(tt.content, &res)
		if got != tt.wantOK {
			t.Errorf("%s: recoverObject = %v, want %v", tt.name, got, tt.wantOK)
			continue
		}
		if tt.wantOK && res.IDNumber != "12345678" {
			t.Errorf("%s: IDNumber = %q", tt.name, res.IDNumber)
		}
	}
}

func TestRecoverFencedMatchesUnwrapped(t *testing.T) {
	plain := `{"ok":true,"missing_fields":[],"id_number":"987","surnames":"Garcia"}`

	var direct, fenced IdentityResult
	if !recoverObject(plain, &direct) {
		t.Fatal("direct parse failed")
	}
	if !recoverObject("```json\n"+plain+"\n```", &fenced) {
		t.Fatal("fenced parse failed")
	}
	if !reflect.DeepEqual(direct, fenced) {
		t.Errorf("fenced result %+v differs from direct %+v", fenced, direct)
	}
}

type fakeCompleter struct {
	content string
	err     error
	prompt  string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.content, f.err
}

func TestIdentitySentinelOnProse(t *testing.T) {
	raw := "Sorry, the document was unreadable."
	e := NewExtractor(&fakeCompleter{content: raw}, 0)

	res, err := e.Identity(context.Background(), "some ocr text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK {
		t.Error("sentinel result must not be ok")
	}
	if len(res.MissingFields) != 1 || res.MissingFields[0] != MissingJSONParse {
		t.Errorf("MissingFields = %v", res.MissingFields)
	}
	if res.Raw != raw {
		t.Errorf("Raw = %q, want original content", res.Raw)
	}
}

func TestIdentityParsesServiceOutput(t *testing.T) {
	e := NewExtractor(&fakeCompleter{
		content: `{"ok":true,"missing_fields":[],"id_number":"12345678","surnames":"Garcia","mrz_detected":true}`,
	}, 0)

	res, err := e.Identity(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK || res.IDNumber != "12345678" || !res.MRZDetected {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCertificateParsesServiceOutput(t *testing.T) {
	e := NewExtractor(&fakeCompleter{
		content: `{"ok":true,"missing_fields":[],"detected_type":"medical","outcome":"FIT","physician_name":"Dr. Ruiz"}`,
	}, 0)

	res, err := e.Certificate(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK || res.DetectedType != "medical" || res.Outcome != "FIT" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExtractionPropagatesTransportError(t *testing.T) {
	e := NewExtractor(&fakeCompleter{err: context.DeadlineExceeded}, 0)
	if _, err := e.Identity(context.Background(), "text"); err == nil {
		t.Error("expected transport error to propagate")
	}
}

func TestComposeCapsText(t *testing.T) {
	fake := &fakeCompleter{content: "{}"}
	e := NewExtractor(fake, 100)

	long := strings.Repeat("x", 500)
	if _, err := e.Identity(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(fake.prompt, strings.Repeat("x", 101)) {
		t.Error("OCR text was not capped")
	}
	if !strings.Contains(fake.prompt, strings.Repeat("x", 100)) {
		t.Error("capped OCR text missing from prompt")
	}
}

func TestComposeCountsRunesNotBytes(t *testing.T) {
	fake := &fakeCompleter{content: "{}"}
	e := NewExtractor(fake, 10)

	accented := strings.Repeat("ñ", 20)
	if _, err := e.Identity(context.Background(), accented); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(fake.prompt) {
		t.Error("truncation split a rune")
	}
	if !strings.Contains(fake.prompt, strings.Repeat("ñ", 10)) {
		t.Error("capped text should keep ten full characters")
	}
	if strings.Contains(fake.prompt, strings.Repeat("ñ", 11)) {
		t.Error("cap should count characters, not bytes")
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.Write([]byte(`{"message":{"content":"{\"ok\":true}"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", 5*time.Second)
	content, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != `{"ok":true}` {
		t.Errorf("content = %q", content)
	}
}

func TestClientNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", 5*time.Second)
	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestClientTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "test-model", time.Second)
	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Error("expected transport error")
	}
}
