package download

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gen2brain/go-unarr"

	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
)

// Kind is an archive format recognized by its leading bytes.
type Kind string

const (
	KindUnknown Kind = ""
	KindZip     Kind = "zip"
	KindRar     Kind = "rar"
	Kind7z      Kind = "7z"
)

var signatures = []struct {
	kind  Kind
	magic []byte
}{
	{KindZip, []byte{0x50, 0x4B, 0x03, 0x04}},
	{KindRar, []byte{0x52, 0x61, 0x72, 0x21}},
	{Kind7z, []byte{0x37, 0x7A, 0xBC, 0xAF}},
}

// DetectKind sniffs the archive format of b.
func DetectKind(b []byte) Kind {
	for _, sig := range signatures {
		if bytes.HasPrefix(b, sig.magic) {
			return sig.kind
		}
	}
	return KindUnknown
}

// Archive is a downloaded subtitle archive.
type Archive struct {
	ID     string
	Kind   Kind
	Mirror int
	Data   []byte
}

var subtitleExts = map[string]bool{
	".srt": true,
	".ssa": true,
	".ass": true,
	".sub": true,
	".idx": true,
	".vtt": true,
}

// IsSubtitle reports whether name has a subtitle extension.
func IsSubtitle(name string) bool {
	return subtitleExts[strings.ToLower(filepath.Ext(name))]
}

// Extractor unpacks archives into a directory.
type Extractor struct{}

// Extract writes the subtitle files of archive into dir, flattening paths,
// and returns their locations.
func (Extractor) Extract(archive *Archive, dir string) ([]string, error) {
	return Extract(archive, dir)
}

// Extract writes the subtitle files of archive into dir.
func Extract(archive *Archive, dir string) ([]string, error) {
	ar, err := unarr.NewArchiveFromMemory(archive.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s archive: %w", archive.Kind, err)
	}
	defer ar.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	var files []string
	for {
		if err := ar.Entry(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return files, fmt.Errorf("failed to read archive entry: %w", err)
		}
		name := filepath.ToSlash(ar.Name())
		if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") || !IsSubtitle(name) {
			continue
		}
		data, err := ar.ReadAll()
		if err != nil {
			return files, fmt.Errorf("failed to read %s: %w", name, err)
		}
		target := uniquePath(dir, filepath.Base(name))
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", target, err)
		}
		files = append(files, target)
	}

	if len(files) == 0 {
		return nil, coreErrors.ErrNoSubtitleInArchive
	}
	sort.Strings(files)
	return files, nil
}

// FindSubtitles lists subtitle files under dir, sorted.
func FindSubtitles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsSubtitle(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func uniquePath(dir, base string) string {
	target := filepath.Join(dir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			return target
		}
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
}
