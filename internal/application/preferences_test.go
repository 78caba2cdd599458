package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
)

func TestPreferencesLanguageIsCanonical(t *testing.T) {
	p := NewPreferences(config.NewStaticProvider(config.Config{API: config.APIConfig{DefaultLanguage: "ja-JP"}}))
	assert.Equal(t, "ja", p.Language())

	p.SetLanguage("zh_TW")
	assert.Equal(t, "zh-Hant", p.Language())

	p.SetLanguage("de")
	assert.Equal(t, "en", p.Language())
}

func TestPreferencesCurrency(t *testing.T) {
	p := NewPreferences(config.NewStaticProvider(config.Config{}))
	assert.Equal(t, "USD", p.Currency("USD"), "nothing selected")

	p.SetCurrency("jpy")
	assert.Equal(t, "JPY", p.Currency("USD"))

	p.SetCurrency("XAU")
	assert.Equal(t, "USD", p.Currency("USD"), "unsupported selection falls back")
}
