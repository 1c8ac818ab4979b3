package parser

import (
	"reflect"
	"strings"
	"testing"
)

const dealerCenterSample = "Steel Wheels V8 4.6 Liter Cold Weather Pkg Dual Air Bags Bluetooth Wireless F&R Head Curtain Air Bags Daytime Running Lights 4WD Power Door Locks"

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestExtractLongestMatchSuppression(t *testing.T) {
	e := NewExtractor(DefaultVocabulary().Features)
	got := e.Extract(dealerCenterSample)

	for _, want := range []string{"Dual Air Bags", "F&R Head Curtain Air Bags", "Bluetooth Wireless", "4WD", "V8", "Liter", "Steel Wheels"} {
		if !contains(got, want) {
			t.Errorf("expected %q in %v", want, got)
		}
	}
	for _, unwanted := range []string{"Air Bag", "Head Curtain Air Bags", "Bluetooth"} {
		if contains(got, unwanted) {
			t.Errorf("did not expect %q in %v", unwanted, got)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	e := NewExtractor(DefaultVocabulary().Features)
	first := e.Extract(dealerCenterSample)
	second := e.Extract(dealerCenterSample)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not idempotent: %v vs %v", first, second)
	}
}

func TestExtract(t *testing.T) {
	longText := strings.Repeat("lorem ipsum dolor ", 20)

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			input:    "   \t ",
			expected: nil,
		},
		{
			name:     "case insensitive in vocabulary order",
			input:    "alloy wheels, POWER STEERING",
			expected: []string{"Power Steering", "Alloy Wheels"},
		},
		{
			name:     "separate generic phrase still matches",
			input:    "Side Air Bags, Air Bag",
			expected: []string{"Side Air Bags", "Air Bag"},
		},
		{
			name:     "specific phrase only",
			input:    "F&R Side Air Bags",
			expected: []string{"F&R Side Air Bags"},
		},
		{
			name:     "short unmatched text kept verbatim",
			input:    "  Sunset Orange Package  ",
			expected: []string{"Sunset Orange Package"},
		},
		{
			name:     "long unmatched text dropped",
			input:    longText,
			expected: nil,
		},
	}

	e := NewExtractor(DefaultVocabulary().Features)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Extract(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Extract(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewExtractorSkipsDuplicates(t *testing.T) {
	e := NewExtractor([]string{"Turbo", "turbo", " ", "Sun Roof"})
	if got := e.Extract("TURBO sun roof"); !reflect.DeepEqual(got, []string{"Turbo", "Sun Roof"}) {
		t.Fatalf("unexpected features: %v", got)
	}
}
