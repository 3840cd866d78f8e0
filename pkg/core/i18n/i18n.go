package i18n

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

//go:embed translations.json
var catalogJSON []byte

var catalog map[string]map[string]string

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

func init() {
	if err := json.Unmarshal(catalogJSON, &catalog); err != nil {
		panic(fmt.Sprintf("i18n: invalid embedded catalog: %v", err))
	}
}

// Translator renders user-facing messages in one language.
type Translator struct {
	lang     string
	messages map[string]string
}

// New returns a Translator for code ("en", "es"). An empty code is derived
// from the environment; unknown languages fall back to English.
func New(code string) *Translator {
	if code == "" {
		code = envLanguage()
	}
	lang := Match(code)
	return &Translator{lang: lang, messages: catalog[lang]}
}

// Match maps any language code to a supported one.
func Match(code string) string {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if i := strings.IndexAny(code, ".@"); i >= 0 {
		code = code[:i]
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "en"
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "en"
	}
	base, _ := supported[idx].Base()
	return base.String()
}

func envLanguage() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return "en"
}

// Lang returns the selected language code.
func (t *Translator) Lang() string {
	return t.lang
}

// T formats the message for key. Unknown keys are returned as is.
func (t *Translator) T(key string, args ...any) string {
	msg, ok := t.messages[key]
	if !ok {
		msg, ok = catalog["en"][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
