package constants

import "time"

// DefaultBaseURL is the root of the subdivx.com site.
const DefaultBaseURL = "https://www.subdivx.com"

// Domain is used to build the public handoff URL of a subtitle.
const Domain = "subdivx.com"

// Site endpoints.
const (
	AjaxPath  = "/inc/ajax.php"
	TokenPath = "/inc/gt.php"
)

// DefaultUserAgent mimics a desktop browser; the site rejects obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// Tunable defaults.
const (
	DefaultSearchAttempts = 3
	DefaultSearchBackoff  = 2 * time.Second
	DefaultMirrorCount    = 9
	DefaultSessionTTL     = time.Hour
	DefaultCommentTTL     = 90 * time.Second
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultPageSize       = 10
)

// AppName names the config, cache and log locations.
const AppName = "subdivx-dl"
