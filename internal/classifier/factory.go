package classifier

import (
	"fmt"

	"github.com/tbourn/go-parental-backend/internal/config"
	"github.com/tbourn/go-parental-backend/internal/search"
)

// FromConfig builds the classifier named by cfg.Provider. The keyword
// classifier uses cfg.ProfilesPath when set and the built-in profiles
// otherwise, bounded by cfg.MaxProfiles and cfg.MinSubstring.
func FromConfig(cfg config.ClassifierConfig) (Classifier, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(OpenAIConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
		}), nil
	case "keyword", "":
		opts := []search.Option{
			search.WithMaxProfiles(cfg.MaxProfiles),
			search.WithMinSubstringRunes(cfg.MinSubstring),
		}
		if cfg.ProfilesPath == "" {
			return NewKeyword(search.NewDefaultIndex(opts...)), nil
		}
		idx, err := search.NewIndexFromMarkdown(cfg.ProfilesPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("category profiles %q: %w", cfg.ProfilesPath, err)
		}
		return NewKeyword(idx), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
