// Package directory holds the static provider registry: which providers serve
// which specialization, and how each provider's calendar is addressed. The
// tables are immutable after construction; there is deliberately no mutation
// API.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Specialization is the closed set of specializations the scheduler routes to.
// Free-text labels from the triage layer are mapped onto this set by Normalize.
type Specialization string

const (
	Orthopedist         Specialization = "Orthopedist"
	Cardiologist        Specialization = "Cardiologist"
	GeneralPractitioner Specialization = "General Practitioner"
)

// synonyms maps classifier vocabulary onto the closed specialization set.
// Lookup is case-insensitive; anything unrecognized routes to the GP list so a
// conversation always has a path forward.
var synonyms = map[string]Specialization{
	"orthopedist":          Orthopedist,
	"orthopedic":           Orthopedist,
	"orthopedics":          Orthopedist,
	"orthopaedist":         Orthopedist,
	"cardiologist":         Cardiologist,
	"cardiology":           Cardiologist,
	"general practitioner": GeneralPractitioner,
	"general physician":    GeneralPractitioner,
	"gp":                   GeneralPractitioner,
}

// Normalize maps a free-text specialization label onto the closed enum.
// Unrecognized labels map to GeneralPractitioner.
func Normalize(label string) Specialization {
	if spec, ok := synonyms[strings.ToLower(strings.TrimSpace(label))]; ok {
		return spec
	}
	return GeneralPractitioner
}

// Provider is one bookable clinician. CalendarID is the identity used to
// address their shared calendar on the backend.
type Provider struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	Specialization Specialization `json:"specialization"`
	CalendarID     string         `json:"calendarId"`
	Experience     string         `json:"experience"`
	Expertise      string         `json:"expertise"`
}

// Directory answers specialization and calendar-identity lookups against a
// fixed provider table loaded once at startup.
type Directory struct {
	bySpec map[Specialization][]Provider
	byID   map[int]Provider
}

// New builds a directory from a provider table. The table must contain at
// least one General Practitioner, since every unmatched lookup falls back to
// that list.
func New(providers []Provider) (*Directory, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("directory: provider table is empty")
	}
	d := &Directory{
		bySpec: make(map[Specialization][]Provider),
		byID:   make(map[int]Provider),
	}
	for _, p := range providers {
		if p.CalendarID == "" {
			return nil, fmt.Errorf("directory: provider %d (%s) has no calendar identity", p.ID, p.Name)
		}
		if _, dup := d.byID[p.ID]; dup {
			return nil, fmt.Errorf("directory: duplicate provider id %d", p.ID)
		}
		spec := Normalize(string(p.Specialization))
		p.Specialization = spec
		d.byID[p.ID] = p
		d.bySpec[spec] = append(d.bySpec[spec], p)
	}
	if len(d.bySpec[GeneralPractitioner]) == 0 {
		return nil, fmt.Errorf("directory: at least one General Practitioner is required")
	}
	for spec := range d.bySpec {
		sort.Slice(d.bySpec[spec], func(i, j int) bool {
			return d.bySpec[spec][i].ID < d.bySpec[spec][j].ID
		})
	}
	return d, nil
}

// LoadFile reads a provider table from a JSON file and builds a directory.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read provider table: %w", err)
	}
	var providers []Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("directory: parse provider table: %w", err)
	}
	return New(providers)
}

// ListProviders returns the providers registered for a specialization, in id
// order. A specialization with no registered providers falls back to the
// General Practitioner list.
func (d *Directory) ListProviders(spec Specialization) []Provider {
	providers := d.bySpec[Normalize(string(spec))]
	if len(providers) == 0 {
		providers = d.bySpec[GeneralPractitioner]
	}
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out
}

// Provider returns the provider registered under id.
func (d *Directory) Provider(id int) (Provider, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// CalendarIdentity resolves a provider id to its calendar identity.
func (d *Directory) CalendarIdentity(id int) (string, bool) {
	p, ok := d.byID[id]
	if !ok {
		return "", false
	}
	return p.CalendarID, true
}

// DefaultProviders is the built-in clinic roster, used when no provider table
// file is configured.
func DefaultProviders() []Provider {
	return []Provider{
		{ID: 1, Name: "Dr. Mehta", Specialization: Cardiologist, CalendarID: "cardiology.mehta@careflowclinic.example", Experience: "15 years", Expertise: "Heart Disease, Cardiac Surgery"},
		{ID: 2, Name: "Dr. Rao", Specialization: Cardiologist, CalendarID: "cardiology.rao@careflowclinic.example", Experience: "12 years", Expertise: "Preventive Cardiology"},
		{ID: 3, Name: "Dr. Iyer", Specialization: Orthopedist, CalendarID: "ortho.iyer@careflowclinic.example", Experience: "10 years", Expertise: "Sports Medicine, Joint Replacement"},
		{ID: 4, Name: "Dr. Sharma", Specialization: GeneralPractitioner, CalendarID: "gp.sharma@careflowclinic.example", Experience: "20 years", Expertise: "Family Medicine"},
	}
}
