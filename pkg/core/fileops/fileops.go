package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
)

// seasonRegex splits "Show.Name.S05E01.720p.srt" into name, season, episode.
var seasonRegex = regexp.MustCompile(`(.*?)[.\s][sS](\d{1,2})[eE](\d{1,3}).*`)

var unsafeChars = strings.NewReplacer("/", "-", "\\", "-", ":", " ", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")

// TargetName returns the file name a single subtitle is saved under: the
// search term with the subtitle's extension, or the original name when
// noRename is set.
func TargetName(searchTerm, src string, noRename bool) string {
	base := filepath.Base(src)
	term := strings.TrimSpace(unsafeChars.Replace(searchTerm))
	if noRename || term == "" {
		return base
	}
	return term + strings.ToLower(filepath.Ext(base))
}

// SeasonName renames an episode file to "Show Name - S05E01.srt". Names that
// carry no episode marker are returned unchanged.
func SeasonName(filename string) string {
	base := filepath.Base(filename)
	m := seasonRegex.FindStringSubmatch(base)
	if m == nil {
		return base
	}
	name := strings.TrimSpace(strings.ReplaceAll(m[1], ".", " "))
	return fmt.Sprintf("%s - S%sE%s%s", name, pad(m[2]), pad(m[3]), strings.ToLower(filepath.Ext(base)))
}

func pad(n string) string {
	if len(n) == 1 {
		return "0" + n
	}
	return n
}

// MoveSubtitle moves src into destDir under name. An identical file already
// at the target is kept and src is discarded.
func MoveSubtitle(src, destDir, name string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", permissionOr(err, destDir, "failed to create destination")
	}
	target := filepath.Join(destDir, name)
	if sameContent(src, target) {
		os.Remove(src)
		return target, nil
	}

	err := os.Rename(src, target)
	if err == nil {
		return target, nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return "", permissionOr(err, target, "")
	}
	// Rename fails across filesystems; fall back to copying.
	if err := copyFile(src, target); err != nil {
		return "", permissionOr(err, target, "failed to copy subtitle")
	}
	os.Remove(src)
	return target, nil
}

// PlaceSeason moves every file into destDir, renamed with SeasonName unless
// noRename is set.
func PlaceSeason(files []string, destDir string, noRename bool) ([]string, error) {
	placed := make([]string, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f)
		if !noRename {
			name = SeasonName(f)
		}
		target, err := MoveSubtitle(f, destDir, name)
		if err != nil {
			return placed, err
		}
		placed = append(placed, target)
	}
	return placed, nil
}

// TempDir creates a scratch directory inside base for extraction.
func TempDir(base string) (string, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", permissionOr(err, base, "failed to create destination")
	}
	dir, err := os.MkdirTemp(base, ".tmp-subdivx-*")
	if err != nil {
		return "", permissionOr(err, base, "failed to create temp directory")
	}
	return dir, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func permissionOr(err error, path, msg string) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s", coreErrors.ErrPermission, path)
	}
	return fmt.Errorf("%s '%s': %w", msg, path, err)
}
