// Package media names and inspects the files backing samples.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	ExtJPEG = ".jpg"
	ExtPNG  = ".png"
	ExtMP4  = ".mp4"
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
}

// Path returns root/YYYY-MM-DD/YYYYMMDD_HHMMSS_micro<ext> for t in loc.
func Path(root string, t time.Time, loc *time.Location, ext string) string {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := fmt.Sprintf("%s_%06d%s", t.Format("20060102_150405"), t.Nanosecond()/1000, ext)
	return filepath.Join(root, t.Format("2006-01-02"), name)
}

// Prepare creates the parent directory of path.
func Prepare(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create media directory: %w", err)
	}
	return nil
}

// MIMEType maps a media file extension to its MIME type, or "" if unknown.
func MIMEType(path string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(path))]
}

func IsImage(path string) bool {
	return strings.HasPrefix(MIMEType(path), "image/")
}

// Size returns the file size, or 0 if the file does not exist.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
