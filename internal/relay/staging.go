package relay

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"relaybot/internal/domain"
)

const fallbackFileName = "file"

// DisplayName picks the name an attachment is re-posted under: the declared
// name, else the last segment of the URL path, else "file".
func DisplayName(att domain.Attachment) string {
	if att.Name != "" {
		return att.Name
	}
	u := att.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	seg := u[strings.LastIndex(u, "/")+1:]
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	if seg == "" {
		return fallbackFileName
	}
	return seg
}

// stagingBatch owns the temp files created for one relay attempt. Release
// removes all of them and must run on every exit path.
type stagingBatch struct {
	dir    string
	paths  []string
	logger *slog.Logger
}

func newStagingBatch(dir string, logger *slog.Logger) *stagingBatch {
	return &stagingBatch{dir: dir, logger: logger}
}

// write streams r into a new uniquely named file. The file is owned by the
// batch as soon as it exists, so a partial write is still released.
func (b *stagingBatch) write(index int, name string, r io.Reader) (string, int64, error) {
	path := filepath.Join(b.dir, fmt.Sprintf("tmp_%d_%d_%s", time.Now().UnixNano(), index, safeFileName(name)))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}
	b.paths = append(b.paths, path)

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write staged file: %w", err)
	}
	return path, n, nil
}

// Release deletes every staged file. Errors are not reported.
func (b *stagingBatch) Release() {
	for _, p := range b.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			b.logger.Debug("staged file left behind", "path", p, "err", err)
		}
	}
	b.paths = nil
}

// safeFileName keeps a display name from escaping the temp directory.
func safeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return fallbackFileName
	}
	return name
}
