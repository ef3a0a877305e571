package main

import (
	"slices"
	"testing"
)

func TestScriptPaths(t *testing.T) {
	tests := []struct {
		name       string
		configured []string
		extra      []string
		want       []string
	}{
		{"config only", []string{"a.lua"}, nil, []string{"a.lua"}},
		{"flags only", nil, []string{"b.lua"}, []string{"b.lua"}},
		{"both", []string{"a.lua"}, []string{"b.lua", "c.lua"}, []string{"a.lua", "b.lua", "c.lua"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scriptPaths(tt.configured, tt.extra)
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScriptPathsDoesNotAlias(t *testing.T) {
	configured := make([]string, 1, 4)
	configured[0] = "a.lua"

	first := scriptPaths(configured, []string{"b.lua"})
	second := scriptPaths(configured, []string{"c.lua"})
	if first[1] != "b.lua" {
		t.Errorf("expected b.lua to survive a second call, got %v", first)
	}
	if second[1] != "c.lua" {
		t.Errorf("expected c.lua, got %v", second)
	}
}
