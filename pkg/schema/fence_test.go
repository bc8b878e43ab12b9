package schema

import "testing"

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```{\"a\":1}```", `{"a":1}`},
		{"bare fence with newlines", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence without trailing newline falls back to bare", "```json\n{\"a\":1}```", "json\n{\"a\":1}"},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace trimmed", "  {\"a\":1}\n", `{"a":1}`},
		{"only opening fence", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
		{"lone fence", "```", ""},
		{"overlapping json fence", "```json\n```", ""},
		{"prose", "not json at all", "not json at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripFencesIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1}\n```",
		"```{\"a\":1}```",
		`{"a":1}`,
		"plain text",
	}
	for _, in := range inputs {
		once := StripFences(in)
		if twice := StripFences(once); twice != once {
			t.Errorf("StripFences not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
