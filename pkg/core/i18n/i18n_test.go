package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := map[string]string{
		"es":          "es",
		"es_AR.UTF-8": "es",
		"es-MX":       "es",
		"en_US.UTF-8": "en",
		"de":          "en",
		"garbage!!":   "en",
		"":            "en",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Match(in))
		})
	}
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "es_ES.UTF-8")
	assert.Equal(t, "es", New("").Lang())
	assert.Equal(t, "en", New("en").Lang())
}

func TestTranslator_T(t *testing.T) {
	es := New("es")
	assert.Equal(t, "Página 2 de 5", es.T("page", 2, 5))
	assert.Equal(t, "Sin comentarios", es.T("no_comments"))
	assert.Equal(t, "missing_key", es.T("missing_key"))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range catalog["en"] {
		_, ok := catalog["es"][key]
		assert.True(t, ok, "es is missing %q", key)
	}
	assert.Equal(t, len(catalog["en"]), len(catalog["es"]))
}
