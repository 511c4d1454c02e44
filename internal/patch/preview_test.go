package patch

import (
	"strings"
	"testing"
)

func TestPreviewIdenticalContent(t *testing.T) {
	if got := Preview("x.go", "same\n", "same\n"); got != "" {
		t.Errorf("expected empty preview, got %q", got)
	}
}

func TestPreviewSimpleChange(t *testing.T) {
	oldContent := "a\nb\nc\n"
	newContent := "a\nB\nc\n"

	got := Preview("x.go", oldContent, newContent)

	if !strings.HasPrefix(got, "--- a/x.go\n+++ b/x.go\n") {
		t.Errorf("missing file headers:\n%s", got)
	}
	if !strings.Contains(got, "-b\n") {
		t.Errorf("missing removed line:\n%s", got)
	}
	if !strings.Contains(got, "+B\n") {
		t.Errorf("missing added line:\n%s", got)
	}
	if !strings.Contains(got, " a\n") {
		t.Errorf("missing context line:\n%s", got)
	}
	if !strings.Contains(got, "@@ ") {
		t.Errorf("missing hunk header:\n%s", got)
	}
}

func TestPreviewNewFile(t *testing.T) {
	got := Preview("new.txt", "", "hello\nworld\n")

	if !strings.Contains(got, "+hello\n") || !strings.Contains(got, "+world\n") {
		t.Errorf("new file preview should be all additions:\n%s", got)
	}
	if strings.Contains(got, "\n-") {
		t.Errorf("new file preview should have no removals:\n%s", got)
	}
}

func TestPreviewSeparateHunks(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 30; i++ {
		line := "line " + string(rune('a'+i))
		oldLines = append(oldLines, line)
		newLines = append(newLines, line)
	}
	newLines[2] = "changed-top"
	newLines[27] = "changed-bottom"

	got := Preview("x.go", strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n")

	// Changes 25 lines apart with 3 context lines must not share a hunk.
	if n := strings.Count(got, "@@ "); n != 2 {
		t.Errorf("expected 2 hunks, got %d:\n%s", n, got)
	}
}
