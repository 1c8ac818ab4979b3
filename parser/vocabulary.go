package parser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BodyRule maps a family of keywords to a body type. Keywords match trim or
// model text; ModelKeywords are short model codes such as "LX" that double as
// trim names, so they only match the model.
type BodyRule struct {
	BodyType      string   `yaml:"body_type"`
	Keywords      []string `yaml:"keywords"`
	ModelKeywords []string `yaml:"model_keywords"`
}

// Vocabulary holds the phrase lists used for feature extraction and inference.
type Vocabulary struct {
	Features          []string   `yaml:"features"`
	BodyRules         []BodyRule `yaml:"body_rules"`
	EngineDescriptors []string   `yaml:"engine_descriptors"`
}

// DefaultVocabulary returns the built-in DealerCenter equipment vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Features:          append([]string(nil), defaultFeatures...),
		BodyRules:         cloneRules(defaultBodyRules),
		EngineDescriptors: append([]string(nil), defaultEngineDescriptors...),
	}
}

// LoadVocabulary reads a YAML vocabulary file. Sections left empty in the file
// fall back to the built-in lists.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	def := DefaultVocabulary()
	if len(vocab.Features) == 0 {
		vocab.Features = def.Features
	}
	if len(vocab.BodyRules) == 0 {
		vocab.BodyRules = def.BodyRules
	}
	if len(vocab.EngineDescriptors) == 0 {
		vocab.EngineDescriptors = def.EngineDescriptors
	}
	for i, rule := range vocab.BodyRules {
		if rule.BodyType == "" || len(rule.Keywords)+len(rule.ModelKeywords) == 0 {
			return nil, fmt.Errorf("parse vocabulary %s: body rule %d needs body_type and keywords", path, i)
		}
	}
	return &vocab, nil
}

func cloneRules(rules []BodyRule) []BodyRule {
	out := make([]BodyRule, len(rules))
	for i, r := range rules {
		out[i] = BodyRule{
			BodyType:      r.BodyType,
			Keywords:      append([]string(nil), r.Keywords...),
			ModelKeywords: append([]string(nil), r.ModelKeywords...),
		}
	}
	return out
}

var defaultFeatures = []string{
	"F&R Head Curtain Air Bags", "F&R Side Air Bags", "Dual Air Bags", "Side Air Bags", "Knee Air Bags", "Head Curtain Air Bags", "Air Bag",
	"Power Steering", "Power Brakes", "Power Door Locks", "Power Windows", "Power Seat", "Dual Power Seats", "Power Liftgate Release",
	"Tilt & Telescoping Wheel", "Tilt Wheel", "Cruise Control", "Adaptive Cruise Control", "Dynamic Cruise Control",
	"Air Conditioning", "Rear Air Conditioning", "Climate Control", "Cold Weather Pkg", "Towing Pkg",
	"AM/FM Stereo", "AM/FM/HD Radio", "CD/MP3 (Single Disc)", "CD/MP3 (Multi Disc)", "Premium Sound", "JBL Audio", "Bose Sound",
	"Satellite Feature", "SiriusXM Satellite", "Bluetooth Wireless", "Bluetooth", "Navigation",
	"Backup Camera", "Rear View Camera", "Top View Camera", "Rear Camera",
	"Alloy Wheels", "Steel Wheels", "Premium Wheels", "Moon Roof", "Sun Roof", "Glass Roof", "Roof Rack", "Running Boards", "Bed Liner", "Tonneau Cover",
	"ABS (4-Wheel)", "Traction Control", "Stability Control", "Enhanced Stability Control", "Hill Start Assist Control", "Downhill Assist Control", "Crawl Control", "Multi-Terrain Select",
	"Keyless Entry", "Keyless Start", "Push Button Start", "Remote Start", "Anti-Theft System", "Alarm System",
	"Leather Seats", "Heated Seats", "Cooled Seats", "Third Row Seat", "Quad Seating",
	"Daytime Running Lights", "Fog Lights", "LED Headlamps", "Xenon Headlamps",
	"Blind-Spot Monitor", "Lane Departure Warning System", "Lane Keep Assistant", "Parking Sensors", "F&R Parking Sensors",
	"AWD", "4WD", "FWD", "RWD", "4x4",
	"V6 Hybrid", "4-Cyl Hybrid", "V8", "V6", "4-Cyl", "Turbo", "Diesel", "Hybrid", "Electric", "Liter",
	"Automatic", "Manual", "CVT", "Tiptronic", "S tronic", "Dual-Clutch",
}

var defaultEngineDescriptors = []string{"V6", "V8", "4-Cyl", "Hybrid", "Electric", "Diesel", "Turbo"}

// Order matters: the first family with a keyword hit wins.
var defaultBodyRules = []BodyRule{
	{BodyType: "Truck", Keywords: []string{
		"PICKUP", "TRUCK", "CREW CAB", "CREWMAX", "DOUBLE CAB", "REGULAR CAB", "EXTENDED CAB", "SUPERCREW", "SUPERCAB",
		"QUAD CAB", "ACCESS CAB", "KING CAB", "MEGA CAB", "F-150", "F150", "F-250", "SILVERADO", "SIERRA", "TACOMA",
		"TUNDRA", "RAM 1500", "RAM 2500", "FRONTIER", "TITAN", "COLORADO", "CANYON", "RANGER", "RIDGELINE", "GLADIATOR",
	}},
	{BodyType: "Van", Keywords: []string{
		"VAN", "MINIVAN", "CARGO", "PASSENGER VAN", "SIENNA", "ODYSSEY", "TRANSIT", "CARAVAN", "PACIFICA", "SPRINTER",
		"PROMASTER", "EXPRESS", "SAVANA", "CARNIVAL", "SEDONA", "QUEST",
	}},
	{BodyType: "SUV", Keywords: []string{
		"SUV", "SPORT UTILITY", "CROSSOVER", "CR-V", "RAV4", "HIGHLANDER", "4RUNNER", "SEQUOIA", "EXPLORER", "EXPEDITION",
		"ESCAPE", "EDGE", "BRONCO", "TAHOE", "SUBURBAN", "YUKON", "ESCALADE", "EQUINOX", "TRAVERSE", "PILOT", "PASSPORT",
		"HR-V", "WRANGLER", "GRAND CHEROKEE", "CHEROKEE", "COMPASS", "DURANGO", "ROGUE", "PATHFINDER", "MURANO", "ARMADA",
		"TIGUAN", "ATLAS", "OUTLANDER", "SANTA FE", "TUCSON", "PALISADE", "SORENTO", "SPORTAGE", "TELLURIDE", "CX-5",
		"CX-9", "FORESTER", "ASCENT", "RANGE ROVER",
	}, ModelKeywords: []string{
		"X1", "X3", "X5", "X7", "GLC", "GLE", "GLS", "Q3", "Q5", "Q7", "RX", "NX", "GX", "LX",
	}},
	{BodyType: "Wagon", Keywords: []string{
		"WAGON", "ESTATE", "SPORTWAGEN", "ALLROAD", "AVANT", "OUTBACK",
	}, ModelKeywords: []string{"V60", "V90"}},
	{BodyType: "Coupe", Keywords: []string{
		"COUPE", "2DR", "2D", "2-DOOR", "MUSTANG", "CAMARO", "CORVETTE", "CHALLENGER", "BRZ",
	}, ModelKeywords: []string{"M4"}},
	{BodyType: "Sedan", Keywords: []string{
		"SEDAN", "4DR", "4D", "4-DOOR", "CAMRY", "COROLLA", "AVALON", "ACCORD", "CIVIC", "ALTIMA", "SENTRA", "MAXIMA",
		"MALIBU", "IMPALA", "FUSION", "SONATA", "ELANTRA", "OPTIMA", "FORTE", "JETTA", "PASSAT", "LEGACY",
		"MAZDA3", "MAZDA6", "CHARGER", "ES 350", "IS 250", "C-CLASS", "E-CLASS", "3 SERIES", "5 SERIES",
	}, ModelKeywords: []string{"K5", "A4", "A6"}},
}
