package pathhelper

import (
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Episode 42", "Episode_42"},
		{"播客精选片段", "播客精选片段"},
		{"a/b\\c:d*e", "a_b_c_d_e"},
		{"  spaced  ", "spaced"},
		{"ＡＢＣ１２３", "ABC123"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeTitle(tc.in); got != tc.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeTitleCapsLength(t *testing.T) {
	long := strings.Repeat("a", 200)
	if got := SanitizeTitle(long); len(got) != 80 {
		t.Errorf("len = %d, want 80", len(got))
	}
}

func TestArtifactFileName(t *testing.T) {
	if got := ArtifactFileName(3, "16:9"); got != "clip_3_16x9.mp4" {
		t.Errorf("got %q", got)
	}
	if got := ArtifactFileName(12, "9:16"); got != "clip_12_9x16.mp4" {
		t.Errorf("got %q", got)
	}
	if got := PosterFileName(3, "1:1"); got != "clip_3_1x1_poster.png" {
		t.Errorf("got %q", got)
	}
}

func TestExtensionFilters(t *testing.T) {
	if !HasVideoExt("/media/ep/cam-a.MP4") {
		t.Error("upper-case video extension rejected")
	}
	if HasVideoExt("/media/ep/audio.wav") {
		t.Error("audio file accepted as video")
	}
	if !HasAudioExt("mixed.wav") {
		t.Error("wav rejected")
	}
	if HasAudioExt("notes.txt") {
		t.Error("text file accepted as audio")
	}
	if HasVideoExt("no-extension") {
		t.Error("extensionless path accepted")
	}
}
