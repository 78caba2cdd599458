package application

import (
	"strings"
	"sync"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
)

// Preferences holds the user's language and currency choices.
type Preferences struct {
	cfgProvider config.Provider

	mu       sync.RWMutex
	language string
	currency string
}

func NewPreferences(cfgProvider config.Provider) *Preferences {
	return &Preferences{
		cfgProvider: cfgProvider,
		language:    cachekeys.Language(cfgProvider.Get().API.DefaultLanguage),
	}
}

// SetLanguage stores the canonical form of raw.
func (p *Preferences) SetLanguage(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.language = cachekeys.Language(raw)
}

// Language is the canonical language code sent as X-Language and used in keys.
func (p *Preferences) Language() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.language
}

func (p *Preferences) SetCurrency(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currency = strings.ToUpper(strings.TrimSpace(code))
}

// Currency returns the selected currency when it is supported, otherwise fallback.
func (p *Preferences) Currency(fallback string) string {
	p.mu.RLock()
	selected := p.currency
	p.mu.RUnlock()
	if selected == "" {
		return fallback
	}
	for _, allowed := range p.cfgProvider.Get().Payment.AllowedCurrencies {
		if strings.EqualFold(allowed, selected) {
			return selected
		}
	}
	return fallback
}
