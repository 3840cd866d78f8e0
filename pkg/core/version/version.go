package version

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/angelospk/subdivx-dl/internal/httpclient"
	coreErrors "github.com/angelospk/subdivx-dl/pkg/core/errors"
)

// Version is the dated release of this build. Overridden with -ldflags.
var Version = "2025.08.15"

// Upstream location of the published version.
const (
	UpstreamBaseURL = "https://raw.githubusercontent.com"
	UpstreamPath    = "/csq/subdivx-dl/refs/heads/master/subdivx_dl/__init__.py"
)

var versionRegex = regexp.MustCompile(`__version__ = '(\d+\.\d+\.\d+)'`)

// Checker looks up the latest published version.
type Checker struct {
	client *httpclient.Client
	path   string
}

// NewChecker creates a Checker reading path through client.
func NewChecker(client *httpclient.Client, path string) *Checker {
	if path == "" {
		path = UpstreamPath
	}
	return &Checker{client: client, path: path}
}

// Latest returns the newest published version.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	resp, err := c.client.Get(ctx, c.path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch version file: %w", err)
	}
	m := versionRegex.FindSubmatch(resp.Body)
	if m == nil {
		return "", fmt.Errorf("%w: version not found upstream", coreErrors.ErrInvalidResponse)
	}
	return string(m[1]), nil
}

// IsNewer reports whether candidate is a later dated version than current.
func IsNewer(candidate, current string) bool {
	a, b := parts(candidate), parts(current)
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return len(a) > len(b)
}

func parts(v string) []int {
	fields := strings.Split(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}
