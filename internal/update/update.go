// Package update compares agent versions and stores downloaded update
// artifacts. Applying an update is left to the user.
package update

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ArtifactName is the file the update download is saved as.
const ArtifactName = "IndustrIA-Bridge-Update.zip"

// Compare orders dotted versions numerically, field by field. Missing
// trailing fields count as 0 and so does any non-numeric field, so a
// malformed version never fails. A leading "v" is ignored.
func Compare(a, b string) int {
	pa, pb := fields(a), fields(b)
	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		x, y := field(pa, i), field(pb, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// Newer reports whether latest is strictly newer than current.
func Newer(current, latest string) bool {
	return Compare(latest, current) > 0
}

func fields(v string) []string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	if v == "" {
		return nil
	}
	return strings.Split(v, ".")
}

func field(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ResolveURL joins a server-relative download path onto serverURL. Absolute
// URLs are returned unchanged.
func ResolveURL(serverURL, downloadURL string) string {
	downloadURL = strings.TrimSpace(downloadURL)
	if downloadURL == "" || strings.Contains(downloadURL, "://") {
		return downloadURL
	}
	return strings.TrimRight(serverURL, "/") + "/" + strings.TrimLeft(downloadURL, "/")
}

// Save writes the artifact produced by fetch into dir and returns its path.
// The data goes to a temp file first so a failed download never replaces a
// previous artifact.
func Save(dir string, fetch func(io.Writer) (int64, error)) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create downloads dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".update-*.part")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := fetch(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close download file: %w", err)
	}
	target := filepath.Join(dir, ArtifactName)
	if err := os.Rename(tmp.Name(), target); err != nil {
		cleanup()
		return "", fmt.Errorf("save download: %w", err)
	}
	return target, nil
}
