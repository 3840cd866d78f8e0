package fileops_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
	"github.com/angelospk/subdivx-dl/pkg/core/fileops"
)

func TestSeasonName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Silicon.Valley.S05E01.720p.HDTV.x264-AVS.srt", "Silicon Valley - S05E01.srt"},
		{"/tmp/x/The.Office.s2e3.WEB.srt", "The Office - S02E03.srt"},
		{"Show Name S01E10 extra.ass", "Show Name - S01E10.ass"},
		{"Movie.2020.1080p.srt", "Movie.2020.1080p.srt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, fileops.SeasonName(tt.in))
		})
	}
}

func TestTargetName(t *testing.T) {
	assert.Equal(t, "The Matrix 1999.srt", fileops.TargetName("The Matrix 1999", "/tmp/a/Matrix.DVDRip.SRT", false))
	assert.Equal(t, "Matrix.DVDRip.SRT", fileops.TargetName("The Matrix 1999", "/tmp/a/Matrix.DVDRip.SRT", true))
	assert.Equal(t, "AC-DC live.srt", fileops.TargetName("AC/DC live", "x.srt", false))
	assert.Equal(t, "x.srt", fileops.TargetName("   ", "x.srt", false))
}

func TestMoveSubtitle(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.srt")
	require.NoError(t, os.WriteFile(src, []byte("hola"), 0o644))
	dest := filepath.Join(t.TempDir(), "nested")

	target, err := fileops.MoveSubtitle(src, dest, "Movie.srt")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dest, "Movie.srt"), target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestMoveSubtitle_IdenticalTargetKept(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.srt")
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(src, []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "Movie.srt"), []byte("same"), 0o644))

	_, err := fileops.MoveSubtitle(src, dest, "Movie.srt")
	require.NoError(t, err)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestMoveSubtitle_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	src := filepath.Join(t.TempDir(), "in.srt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	dest := t.TempDir()
	require.NoError(t, os.Chmod(dest, 0o500))
	t.Cleanup(func() { os.Chmod(dest, 0o755) })

	_, err := fileops.MoveSubtitle(src, dest, "Movie.srt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreErrors.ErrPermission))
	assert.Contains(t, err.Error(), dest)
}

func TestPlaceSeason(t *testing.T) {
	tmp := t.TempDir()
	var files []string
	for _, name := range []string{"Show.S01E01.srt", "Show.S01E02.srt"} {
		p := filepath.Join(tmp, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		files = append(files, p)
	}
	dest := t.TempDir()

	placed, err := fileops.PlaceSeason(files, dest, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dest, "Show - S01E01.srt"),
		filepath.Join(dest, "Show - S01E02.srt"),
	}, placed)
}

func TestTempDir(t *testing.T) {
	base := t.TempDir()
	dir, err := fileops.TempDir(base)
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(dir))
	assert.Contains(t, filepath.Base(dir), ".tmp-subdivx-")
}

func TestCalculateMD5Hash(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("The quick brown fox jumps over the lazy dog"), 0o644))

	hash, err := fileops.CalculateMD5Hash(filePath)
	assert.NoError(t, err)
	assert.Equal(t, "9e107d9d372bb6826bd81d3542a419d6", hash)
}
