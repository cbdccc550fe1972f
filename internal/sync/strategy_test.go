package sync

import (
	"testing"
)

func TestStrategy_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		want     bool
	}{
		{"prompt is valid", StrategyPrompt, true},
		{"upstream is valid", StrategyUpstream, true},
		{"local is valid", StrategyLocal, true},
		{"manual is valid", StrategyManual, true},
		{"empty is invalid", Strategy(""), false},
		{"unknown is invalid", Strategy("overwrite"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.strategy.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllStrategies(t *testing.T) {
	strategies := AllStrategies()
	if len(strategies) != 4 {
		t.Errorf("got %d strategies, want 4", len(strategies))
	}
	for _, s := range strategies {
		if !s.IsValid() {
			t.Errorf("AllStrategies returned invalid strategy %q", s)
		}
		if s.Description() == "Unknown strategy" {
			t.Errorf("strategy %q has no description", s)
		}
	}
}

func TestStrategyResolver_FirstMatchWins(t *testing.T) {
	resolver := NewStrategyResolver([]Rule{
		{Pattern: "docs/**", Strategy: StrategyLocal},
		{Pattern: "**", Strategy: StrategyUpstream},
	}, StrategyPrompt)

	if got := resolver.Resolve("docs/readme.md"); got != StrategyLocal {
		t.Errorf("Resolve(docs/readme.md) = %q, want %q", got, StrategyLocal)
	}
	if got := resolver.Resolve("src/main.go"); got != StrategyUpstream {
		t.Errorf("Resolve(src/main.go) = %q, want %q", got, StrategyUpstream)
	}
}

func TestStrategyResolver_DeclarationOrderMatters(t *testing.T) {
	// Same rules, reversed order: the broad pattern now shadows the
	// specific one. Authors rely on declaration order being honored.
	resolver := NewStrategyResolver([]Rule{
		{Pattern: "**", Strategy: StrategyUpstream},
		{Pattern: "docs/**", Strategy: StrategyLocal},
	}, StrategyPrompt)

	if got := resolver.Resolve("docs/readme.md"); got != StrategyUpstream {
		t.Errorf("Resolve(docs/readme.md) = %q, want %q", got, StrategyUpstream)
	}
}

func TestStrategyResolver_FallbackWhenNothingMatches(t *testing.T) {
	resolver := NewStrategyResolver([]Rule{
		{Pattern: "docs/**", Strategy: StrategyLocal},
	}, StrategyManual)

	if got := resolver.Resolve("src/main.go"); got != StrategyManual {
		t.Errorf("Resolve(src/main.go) = %q, want %q", got, StrategyManual)
	}
}

func TestStrategyResolver_InvalidFallbackDegradesToPrompt(t *testing.T) {
	resolver := NewStrategyResolver(nil, Strategy("bogus"))

	if got := resolver.Resolve("anything.txt"); got != StrategyPrompt {
		t.Errorf("Resolve() = %q, want %q", got, StrategyPrompt)
	}
}

func TestStrategyResolver_Stateless(t *testing.T) {
	resolver := NewStrategyResolver([]Rule{
		{Pattern: "*.md", Strategy: StrategyLocal},
	}, StrategyUpstream)

	// Repeated queries must not influence each other.
	for i := 0; i < 3; i++ {
		if got := resolver.Resolve("a.md"); got != StrategyLocal {
			t.Fatalf("call %d: Resolve(a.md) = %q, want %q", i, got, StrategyLocal)
		}
		if got := resolver.Resolve("b.go"); got != StrategyUpstream {
			t.Fatalf("call %d: Resolve(b.go) = %q, want %q", i, got, StrategyUpstream)
		}
	}
}
