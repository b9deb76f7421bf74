package capture

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/vigil/internal/interfaces"
)

// ProviderConstructor builds a screenshot provider from the capture config.
type ProviderConstructor func(cfg Config, logger interfaces.Logger) (interfaces.ScreenshotProvider, error)

var (
	providersMu      sync.RWMutex
	providerRegistry = map[string]ProviderConstructor{}
)

// RegisterProvider makes a provider constructor available under name. Names
// are case-insensitive. Empty names and nil constructors are ignored.
func RegisterProvider(name string, ctor ProviderConstructor) {
	if name == "" || ctor == nil {
		return
	}
	providersMu.Lock()
	defer providersMu.Unlock()
	providerRegistry[strings.ToLower(name)] = ctor
}

// NewProvider constructs a registered provider by name.
func NewProvider(name string, cfg Config, logger interfaces.Logger) (interfaces.ScreenshotProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	providersMu.RLock()
	ctor, ok := providerRegistry[key]
	providersMu.RUnlock()

	if !ok || ctor == nil {
		return nil, fmt.Errorf("screenshot provider %q not registered: available providers=%v", name, ListProviders())
	}
	provider, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to construct screenshot provider %q: %w", name, err)
	}
	if provider == nil {
		return nil, fmt.Errorf("screenshot provider %q constructor returned nil", name)
	}
	return provider, nil
}

// NewProviderChain constructs the configured fallback chain in order.
func NewProviderChain(cfg Config, logger interfaces.Logger) ([]interfaces.ScreenshotProvider, error) {
	chain := make([]interfaces.ScreenshotProvider, 0, len(cfg.ScreenshotProviders))
	for _, name := range cfg.ScreenshotProviders {
		provider, err := NewProvider(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		chain = append(chain, provider)
	}
	return chain, nil
}

// ListProviders returns the registered provider names, sorted.
func ListProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaultProviders registers the built-in screenshot providers.
func RegisterDefaultProviders() {
	RegisterProvider("chromedp", NewChromedpProvider)
	RegisterProvider("rod", NewRodProvider)
}
