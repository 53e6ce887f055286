package match

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		upstream  string
		canonical string
		aliases   []string
		want      bool
	}{
		{"Blackhole", "Blackhole", nil, true},
		{"blackhole", "Blackhole", nil, true},
		{"BlackHole DEX", "Blackhole", nil, true},
		{"black-hole", "Blackhole", nil, true},
		{"Trader Joe v2.1", "Trader Joe", nil, true},
		{"traderjoe", "Trader Joe", nil, true},
		{"Joe Trader", "Trader Joe", nil, true},
		{"Pangolin Exchange", "Pangolin", nil, true},
		{"Uniswap", "Blackhole", nil, false},
		{"Uniswap", "Trader Joe", []string{"Blackhole"}, false},
		{"BH", "Blackhole", []string{"BH"}, true},
		{"", "Blackhole", nil, false},
		{"Pharaoh", "Blackhole", []string{"---"}, false},
		{"Véloce Finance", "Véloce Finance", nil, true},
		{"véloce-finance", "Véloce Finance", nil, true},
		{"Uniswap", "Véloce Finance", nil, false},
	}

	for _, tt := range tests {
		got := Resolve(tt.upstream, tt.canonical, tt.aliases)
		if got != tt.want {
			t.Errorf("Resolve(%q, %q, %v) = %v, want %v",
				tt.upstream, tt.canonical, tt.aliases, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Trader Joe v2.1", "traderjoev21"},
		{"BLACK-hole_dex", "blackholedex"},
		{"Véloce Finance", "vélocefinance"},
		{"ÉTOILE v2", "étoilev2"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
