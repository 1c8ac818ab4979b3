package parser

import (
	"strings"
	"unicode"

	"github.com/aluiziolira/go-inventory-bridge/models"
)

// Drivetrain labels produced by inference.
const (
	DrivetrainAWD = "AWD/4WD"
	DrivetrainFWD = "FWD"
	DrivetrainRWD = "RWD"
)

var placeholders = map[string]struct{}{
	"":        {},
	"-":       {},
	"N/A":     {},
	"NA":      {},
	"NONE":    {},
	"OTHER":   {},
	"UNKNOWN": {},
	"VEHICLE": {},
	"CAR":     {},
}

// IsPlaceholder reports whether a vendor value carries no real information.
func IsPlaceholder(value string) bool {
	_, ok := placeholders[strings.ToUpper(strings.TrimSpace(value))]
	return ok
}

type bodyMatcher struct {
	bodyType      string
	keywords      []string // padded word form
	modelKeywords []string
}

// Inferencer derives body type, drivetrain, engine and fuel type for records
// whose source data left them blank.
type Inferencer struct {
	bodies  []bodyMatcher
	engines []string // padded word form
}

// NewInferencer builds an inferencer from the vocabulary's rules.
func NewInferencer(vocab *Vocabulary) *Inferencer {
	inf := &Inferencer{}
	for _, rule := range vocab.BodyRules {
		m := bodyMatcher{bodyType: rule.BodyType}
		m.keywords = wordForms(rule.Keywords)
		m.modelKeywords = wordForms(rule.ModelKeywords)
		inf.bodies = append(inf.bodies, m)
	}
	inf.engines = wordForms(vocab.EngineDescriptors)
	return inf
}

func wordForms(phrases []string) []string {
	var out []string
	for _, p := range phrases {
		if w := wordForm(p); w != "  " {
			out = append(out, w)
		}
	}
	return out
}

// Apply fills inferred attributes on rec. Values the vendor already supplied
// are kept unless they are placeholders.
func (inf *Inferencer) Apply(rec *models.VehicleRecord) {
	trim := wordForm(rec.Trim)
	model := wordForm(rec.Model)

	if IsPlaceholder(rec.BodyType) {
		if body := inf.BodyType(trim, model); body != "" {
			rec.BodyType = body
		}
	}
	if IsPlaceholder(rec.Drivetrain) {
		if drive := Drivetrain(rec.Features); drive != "" {
			rec.Drivetrain = drive
		}
	}
	if IsPlaceholder(rec.Engine) {
		if engine := inf.Engine(rec.Features); engine != "" {
			rec.Engine = engine
		}
	}
	if IsPlaceholder(rec.FuelType) {
		if fuel := FuelType(trim, rec.Features); fuel != "" {
			rec.FuelType = fuel
		}
	}
}

// BodyType returns the first rule family whose keyword appears in the trim or
// model text, both given in word form. Model-only keywords are checked after
// every family's general keywords, so "Accord LX" stays a sedan.
func (inf *Inferencer) BodyType(trim, model string) string {
	for _, m := range inf.bodies {
		for _, kw := range m.keywords {
			if strings.Contains(trim, kw) || strings.Contains(model, kw) {
				return m.bodyType
			}
		}
	}
	for _, m := range inf.bodies {
		for _, kw := range m.modelKeywords {
			if strings.Contains(model, kw) {
				return m.bodyType
			}
		}
	}
	return ""
}

// Drivetrain picks AWD/4WD over FWD over RWD.
func Drivetrain(features []string) string {
	has := func(labels ...string) bool {
		for _, f := range features {
			for _, l := range labels {
				if strings.EqualFold(strings.TrimSpace(f), l) {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("AWD", "4WD", "4x4"):
		return DrivetrainAWD
	case has("FWD"):
		return DrivetrainFWD
	case has("RWD"):
		return DrivetrainRWD
	default:
		return ""
	}
}

// Engine joins, in feature order, every feature naming an engine descriptor or
// a displacement in liters.
func (inf *Inferencer) Engine(features []string) string {
	var parts []string
	for _, f := range features {
		if strings.Contains(strings.ToUpper(f), "LITER") {
			parts = append(parts, f)
			continue
		}
		w := wordForm(f)
		for _, d := range inf.engines {
			if strings.Contains(w, d) {
				parts = append(parts, f)
				break
			}
		}
	}
	return strings.Join(parts, " ")
}

// FuelType checks Hybrid, Electric, then Diesel against trim text (word form)
// and features. Empty means no signal.
func FuelType(trim string, features []string) string {
	for _, fuel := range []string{"Hybrid", "Electric", "Diesel"} {
		kw := wordForm(fuel)
		if strings.Contains(trim, kw) {
			return fuel
		}
		for _, f := range features {
			if strings.Contains(wordForm(f), kw) {
				return fuel
			}
		}
	}
	return ""
}

// wordForm upper-cases s, turns separators into single spaces and pads both
// ends so keyword checks only hit whole words.
func wordForm(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '&':
			return unicode.ToUpper(r)
		default:
			return ' '
		}
	}, s)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}
