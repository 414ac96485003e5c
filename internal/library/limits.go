package library

import "github.com/Aman-CERP/gujimcp/internal/config"

// Limits bounds and defaults tool arguments.
type Limits struct {
	DefaultLimit     int
	MaxLimit         int
	MaxKeywordLength int
	SnippetLength    int

	DefaultSnippets      int
	MaxSnippets          int
	DefaultContextLength int
	MaxContextLength     int

	DefaultThemes int
	MaxThemes     int
}

// DefaultLimits matches the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		DefaultLimit:         20,
		MaxLimit:             100,
		MaxKeywordLength:     100,
		SnippetLength:        100,
		DefaultSnippets:      20,
		MaxSnippets:          50,
		DefaultContextLength: 200,
		MaxContextLength:     1000,
		DefaultThemes:        10,
		MaxThemes:            20,
	}
}

// LimitsFromConfig reads limits from a validated configuration.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		DefaultLimit:         cfg.Search.DefaultLimit,
		MaxLimit:             cfg.Search.MaxLimit,
		MaxKeywordLength:     cfg.Search.MaxKeywordLength,
		SnippetLength:        cfg.Search.SnippetLength,
		DefaultSnippets:      cfg.Snippets.DefaultMax,
		MaxSnippets:          cfg.Snippets.MaxSnippets,
		DefaultContextLength: cfg.Snippets.DefaultContextLength,
		MaxContextLength:     cfg.Snippets.MaxContextLength,
		DefaultThemes:        cfg.Themes.DefaultMax,
		MaxThemes:            cfg.Themes.MaxThemes,
	}
}
