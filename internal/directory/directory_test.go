package directory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		label string
		want  Specialization
	}{
		{"Cardiology", Cardiologist},
		{"Cardiologist", Cardiologist},
		{"Orthopedic", Orthopedist},
		{"orthopedist", Orthopedist},
		{"GP", GeneralPractitioner},
		{"General Physician", GeneralPractitioner},
		{"  general practitioner  ", GeneralPractitioner},
		{"Dermatologist", GeneralPractitioner},
		{"", GeneralPractitioner},
	}
	for _, tt := range tests {
		if got := Normalize(tt.label); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestListProviders_CardiologyInIDOrder(t *testing.T) {
	d, err := New(DefaultProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	providers := d.ListProviders("Cardiology")
	if len(providers) != 2 {
		t.Fatalf("expected 2 cardiologists, got %d", len(providers))
	}
	if providers[0].ID != 1 || providers[1].ID != 2 {
		t.Errorf("providers not in id order: %d, %d", providers[0].ID, providers[1].ID)
	}
}

func TestListProviders_UnknownSpecializationFallsBackToGP(t *testing.T) {
	d, err := New(DefaultProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	providers := d.ListProviders("Neurologist")
	if len(providers) == 0 {
		t.Fatal("expected GP fallback, got empty list")
	}
	for _, p := range providers {
		if p.Specialization != GeneralPractitioner {
			t.Errorf("fallback returned %s provider %q", p.Specialization, p.Name)
		}
	}
}

func TestCalendarIdentity(t *testing.T) {
	d, err := New(DefaultProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id, ok := d.CalendarIdentity(3)
	if !ok || id == "" {
		t.Fatalf("CalendarIdentity(3) = %q, %v", id, ok)
	}
	if _, ok := d.CalendarIdentity(99); ok {
		t.Error("CalendarIdentity(99) should not resolve")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("empty table should be rejected")
	}

	noGP := []Provider{{ID: 1, Name: "Dr. A", Specialization: Cardiologist, CalendarID: "a@clinic"}}
	if _, err := New(noGP); err == nil {
		t.Error("table without a General Practitioner should be rejected")
	}

	dup := append(DefaultProviders(), Provider{ID: 1, Name: "Dr. Dup", Specialization: GeneralPractitioner, CalendarID: "dup@clinic"})
	if _, err := New(dup); err == nil {
		t.Error("duplicate provider id should be rejected")
	}

	noCal := []Provider{{ID: 1, Name: "Dr. A", Specialization: GeneralPractitioner}}
	if _, err := New(noCal); err == nil {
		t.Error("provider without calendar identity should be rejected")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	data, err := json.Marshal(DefaultProviders())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(d.ListProviders(Orthopedist)) != 1 {
		t.Error("expected 1 orthopedist from file table")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should error")
	}
}
