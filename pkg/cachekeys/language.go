package cachekeys

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used for tags outside the supported set.
const DefaultLanguage = "en"

var (
	simplifiedChinese  = language.MustParse("zh-Hans")
	traditionalChinese = language.MustParse("zh-Hant")

	supportedBases = map[string]bool{
		"en": true, "ja": true, "ko": true, "th": true, "id": true,
		"ms": true, "es": true, "pt": true, "vi": true, "ar": true,
	}
)

// Language canonicalizes a BCP 47 tag to one of the supported locale codes:
// zh-Hans, zh-Hant, or a bare base language. Unknown or malformed tags
// map to DefaultLanguage.
func Language(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()
	if base.String() == "zh" {
		script, _ := tag.Script()
		switch script.String() {
		case "Hant":
			return traditionalChinese.String()
		case "Hans":
			return simplifiedChinese.String()
		}
		return simplifiedChinese.String()
	}
	if supportedBases[base.String()] {
		return base.String()
	}
	return DefaultLanguage
}
