package event

import "testing"

type keyPayload struct {
	Key string
}

func TestFilterPayload(t *testing.T) {
	f := FilterPayload(func(p keyPayload) bool { return p.Key == "Enter" })

	tests := []struct {
		name    string
		payload any
		want    bool
	}{
		{"matching payload", keyPayload{Key: "Enter"}, true},
		{"other key", keyPayload{Key: "Escape"}, false},
		{"other type", "Enter", false},
		{"nil payload", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Match(tt.payload); got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestFilterCombinators(t *testing.T) {
	isEnter := FilterPayload(func(p keyPayload) bool { return p.Key == "Enter" })
	isKey := FilterPayload(func(p keyPayload) bool { return p.Key != "" })

	tests := []struct {
		name    string
		filter  Filter
		payload any
		want    bool
	}{
		{"and both", FilterAnd(isEnter, isKey), keyPayload{Key: "Enter"}, true},
		{"and one", FilterAnd(isEnter, isKey), keyPayload{Key: "a"}, false},
		{"and empty", FilterAnd(), nil, true},
		{"or one", FilterOr(isEnter, isKey), keyPayload{Key: "a"}, true},
		{"or none", FilterOr(isEnter, isKey), 42, false},
		{"or empty", FilterOr(), nil, false},
		{"not", FilterNot(isEnter), keyPayload{Key: "a"}, true},
		{"all", FilterAll(), nil, true},
		{"none", FilterNone(), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.payload); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
