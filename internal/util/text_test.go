package util

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain utf8",
			input: `{"type":"entities"}`,
			want:  `{"type":"entities"}`,
		},
		{
			name:  "contains null byte",
			input: "{\"a\":\x00 1}",
			want:  `{"a": 1}`,
		},
		{
			name:  "contains invalid utf8",
			input: string([]byte{'{', 0xff, '}'}),
			want:  "{}",
		},
		{
			name:  "leading byte order mark",
			input: "\ufeff{}",
			want:  "{}",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}
