package media

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPath(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 5, 7, 123456789, time.UTC)

	got := Path("/data/media", ts, time.UTC, "jpg")
	want := filepath.Join("/data/media", "2026-03-02", "20260302_090507_123456.jpg")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}

	if a, b := Path("/m", ts, time.UTC, ExtMP4), Path("/m", ts.Add(time.Microsecond), time.UTC, ExtMP4); a == b {
		t.Errorf("distinct instants share a path: %s", a)
	}
}

func TestPathUsesLocation(t *testing.T) {
	ts := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+2", 2*3600)

	got := Path("/m", ts, loc, ExtPNG)
	if filepath.Base(filepath.Dir(got)) != "2026-03-03" {
		t.Errorf("Path = %q, want 2026-03-03 bucket", got)
	}
}

func TestMIMEType(t *testing.T) {
	tests := map[string]string{
		"a.jpg":  "image/jpeg",
		"a.JPEG": "image/jpeg",
		"a.png":  "image/png",
		"a.mp4":  "video/mp4",
		"a.txt":  "",
	}
	for in, want := range tests {
		if got := MIMEType(in); got != want {
			t.Errorf("MIMEType(%q) = %q, want %q", in, got, want)
		}
	}
	if !IsImage("x.png") || IsImage("x.mp4") {
		t.Error("IsImage misclassified")
	}
}

func TestPrepareAndSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2026-03-02", "x.jpg")
	if err := Prepare(path); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	size, err := Size(path)
	if err != nil || size != 0 {
		t.Fatalf("Size(missing) = %d, %v", size, err)
	}

	if err := os.WriteFile(path, []byte("abcd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	size, err = Size(path)
	if err != nil || size != 4 {
		t.Fatalf("Size = %d, %v", size, err)
	}
}
