package db

import "testing"

func TestSameMusic(t *testing.T) {
	t.Parallel()

	a := &MusicItem{ID: 1, Link: "https://x/a"}
	sameLinkPadded := &MusicItem{ID: 1, Link: "  https://x/a  "}
	newLink := &MusicItem{ID: 1, Link: "https://x/b"}
	otherID := &MusicItem{ID: 2, Link: "https://x/a"}

	tests := []struct {
		name string
		a, b *MusicItem
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil left", nil, a, false},
		{"nil right", a, nil, false},
		{"identical", a, a, true},
		{"link whitespace ignored", a, sameLinkPadded, true},
		{"same id new link", a, newLink, false},
		{"same link other id", a, otherID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameMusic(tt.a, tt.b); got != tt.want {
				t.Errorf("SameMusic() = %v, want %v", got, tt.want)
			}
			// Equality is symmetric.
			if got := SameMusic(tt.b, tt.a); got != tt.want {
				t.Errorf("SameMusic() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want bool
	}{
		{"net", true},
		{"both", true},
		{" NET ", true},
		{"Both", true},
		{"", false},
		{"fm", false},
		{"off", false},
		{"net,both", false},
	}
	for _, tt := range tests {
		if got := StatusEnabled(tt.raw); got != tt.want {
			t.Errorf("StatusEnabled(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
