// Package llm wraps the external text-generation collaborator behind a small
// provider-agnostic interface. The drafting engine and voice extractor talk
// to this package only; nothing else in the core depends on a model vendor.
package llm

// ModelTier selects a capability level for a generation call.
type ModelTier string

const (
	// TierLite is for cheap structured extraction.
	TierLite ModelTier = "lite"
	// TierStandard is for email drafting.
	TierStandard ModelTier = "standard"
	// TierAdvanced is for voice analysis, which needs tonal nuance.
	TierAdvanced ModelTier = "advanced"
)

// Provider identifies a text-generation backend.
type Provider string

// Supported providers
const (
	ProviderGemini Provider = "gemini"
)

// Config maps model tiers to concrete provider model names.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default Gemini tier mapping.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a tier, falling back down the tier
// ladder when a tier has no explicit mapping.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
