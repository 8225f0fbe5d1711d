package services

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url extra params", "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"bare id with whitespace", "  dQw4w9WgXcQ\n", "dQw4w9WgXcQ"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"random text", "not a youtube link", ""},
		{"id buried in prose", "check out dQw4w9WgXcQ sometime", ""},
		{"wrong host", "https://vimeo.com/watch?v=dQw4w9WgXcQ", ""},
		{"playlist without video", "https://www.youtube.com/playlist?list=PL123456789", ""},
		{"too short id", "https://youtu.be/short", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractVideoID(tc.raw)
			if got != tc.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestDurationErrorMessage(t *testing.T) {
	err := &DurationError{DurationSeconds: 7200, MaxSeconds: 3600}

	want := "Video is too long (120 minutes). Maximum allowed: 60 minutes."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
