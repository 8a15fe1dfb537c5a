package consolidate

import (
	"strings"
	"testing"

	"github.com/solivar/docintake/internal/extract"
	"github.com/solivar/docintake/internal/mrz"
)

func TestMergeIdentityIDPriority(t *testing.T) {
	svc := extract.IdentityResult{IDNumber: "99.999.999"}

	got := MergeIdentity(svc, true, mrz.Fields{IDNumber: "123456"}, Options{})
	if got.IDNumber != "123456" {
		t.Errorf("zone ID must override: got %q", got.IDNumber)
	}

	got = MergeIdentity(svc, true, mrz.Fields{}, Options{})
	if got.IDNumber != "99999999" {
		t.Errorf("service ID must be canonicalized: got %q", got.IDNumber)
	}

	got = MergeIdentity(svc, false, mrz.Fields{IDNumber: "123456"}, Options{})
	if got.IDNumber != "99999999" {
		t.Errorf("invalid zone must not contribute: got %q", got.IDNumber)
	}
}

func TestMergeIdentityNamesFieldByField(t *testing.T) {
	svc := extract.IdentityResult{Surnames: "Garsia", GivenNames: "Maria"}

	got := MergeIdentity(svc, true, mrz.Fields{Surnames: "Garcia"}, Options{})
	if got.Surnames != "Garcia" {
		t.Errorf("Surnames = %q, want zone value", got.Surnames)
	}
	if got.GivenNames != "Maria" {
		t.Errorf("GivenNames = %q, empty zone value must not clear it", got.GivenNames)
	}
}

func TestMergeIdentityBirthDateFillsOnlyBlank(t *testing.T) {
	f := mrz.Fields{BirthDate: "1990-01-01"}

	got := MergeIdentity(extract.IdentityResult{BirthDate: ""}, true, f, Options{})
	if got.BirthDate != "1990-01-01" {
		t.Errorf("blank service date should be filled: got %q", got.BirthDate)
	}

	got = MergeIdentity(extract.IdentityResult{BirthDate: "1989-12-31"}, true, f, Options{})
	if got.BirthDate != "1989-12-31" {
		t.Errorf("non-blank service date must survive: got %q", got.BirthDate)
	}

	got = MergeIdentity(extract.IdentityResult{BirthDate: "1989-12-31"}, true, f, Options{OverrideBirthDate: true})
	if got.BirthDate != "1990-01-01" {
		t.Errorf("override option should replace the date: got %q", got.BirthDate)
	}
}

func TestMergeIdentityRecordsDetection(t *testing.T) {
	got := MergeIdentity(extract.IdentityResult{}, true, mrz.Fields{}, Options{})
	if !got.MRZDetected {
		t.Error("valid zone with no fields must still set MRZDetected")
	}

	got = MergeIdentity(extract.IdentityResult{MRZDetected: true}, false, mrz.Fields{}, Options{})
	if got.MRZDetected {
		t.Error("invalid zone must clear MRZDetected")
	}
}

func TestComplete(t *testing.T) {
	if !Complete(true, true) {
		t.Error("all ok should be complete")
	}
	if Complete(true, false) {
		t.Error("one failing flag should not be complete")
	}
	if !Complete() {
		t.Error("vacuous AND is true")
	}
}

func TestInitialStatus(t *testing.T) {
	if InitialStatus != "pending admin review" {
		t.Errorf("InitialStatus = %q", InitialStatus)
	}
}

func TestStatusMessage(t *testing.T) {
	okID := extract.IdentityResult{Meta: extract.Meta{OK: true}}
	okCert := extract.CertificateResult{Meta: extract.Meta{OK: true}}

	if got := StatusMessage(true, okID, okCert); got != "Documents complete." {
		t.Errorf("got %q", got)
	}

	badID := extract.IdentityResult{Meta: extract.Meta{MissingFields: []string{"id_number"}}}
	got := StatusMessage(false, badID, okCert)
	if !strings.HasPrefix(got, "Documents INCOMPLETE.") || !strings.Contains(got, "id_number") {
		t.Errorf("got %q", got)
	}

	affCert := extract.CertificateResult{DetectedType: "affiliation"}
	got = StatusMessage(false, okID, affCert)
	if !strings.Contains(got, "affiliation certificate") {
		t.Errorf("got %q", got)
	}
}

func TestCheckConsistency(t *testing.T) {
	id := extract.IdentityResult{Surnames: "Garcia", GivenNames: "Maria", IDNumber: "123456"}

	t.Run("matching documents", func(t *testing.T) {
		cert := extract.CertificateResult{PatientName: "garcia maria"}
		alerts, match := CheckConsistency(id, cert, []Sighting{{Name: "Garcia Maria", ID: "123456"}})
		if !match || len(alerts) != 0 {
			t.Errorf("expected clean match, got %v", alerts)
		}
	})

	t.Run("name mismatch is advisory", func(t *testing.T) {
		cert := extract.CertificateResult{PatientName: "Rodriguez Ana"}
		alerts, match := CheckConsistency(id, cert, nil)
		if match || len(alerts) != 1 {
			t.Fatalf("expected one alert, got %v", alerts)
		}
		if !strings.Contains(alerts[0], "Names do not match") {
			t.Errorf("alert = %q", alerts[0])
		}
	})

	t.Run("id mismatch from supporting document", func(t *testing.T) {
		alerts, match := CheckConsistency(id, extract.CertificateResult{}, []Sighting{{ID: "654321"}})
		if match || len(alerts) != 1 {
			t.Fatalf("expected one alert, got %v", alerts)
		}
		if !strings.Contains(alerts[0], "ID numbers do not match") {
			t.Errorf("alert = %q", alerts[0])
		}
	})

	t.Run("empty sightings ignored", func(t *testing.T) {
		_, match := CheckConsistency(id, extract.CertificateResult{}, []Sighting{{}, {}})
		if !match {
			t.Error("empty sightings must not alert")
		}
	})
}

func TestSummaries(t *testing.T) {
	pairs := IdentitySummary(extract.IdentityResult{IDNumber: " 123 ", MRZDetected: true})
	if pairs[0].Label != "ID number" || pairs[0].Value != "123" {
		t.Errorf("first pair = %+v", pairs[0])
	}

	cert := CertificateSummary(extract.CertificateResult{})
	if cert[0].Value != "unknown" {
		t.Errorf("empty detected type should read unknown, got %q", cert[0].Value)
	}
}
