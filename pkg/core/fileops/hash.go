package fileops

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CalculateMD5Hash computes the MD5 hash of a file.
func CalculateMD5Hash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file for MD5 hashing '%s': %w", filePath, err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash '%s': %w", filePath, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// sameContent reports whether both files exist and hash equal.
func sameContent(a, b string) bool {
	ha, err := CalculateMD5Hash(a)
	if err != nil {
		return false
	}
	hb, err := CalculateMD5Hash(b)
	return err == nil && ha == hb
}
