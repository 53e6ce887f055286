package model

// Entity describes one tracked subject (a DEX protocol) together with the
// provider-specific identifiers needed to locate it upstream.
type Entity struct {
	ID          string   `json:"id" mapstructure:"id"`
	Name        string   `json:"name" mapstructure:"name"`
	Aliases     []string `json:"aliases" mapstructure:"aliases"`
	Chain       string   `json:"chain" mapstructure:"chain"`
	LlamaSlug   string   `json:"llama_slug" mapstructure:"llama-slug"`
	FeeSlugs    []string `json:"fee_slugs" mapstructure:"fee-slugs"`
	SearchQuery string   `json:"search_query" mapstructure:"search-query"`
}

// AliasSet returns the canonical name plus aliases used for identity
// resolution against inconsistent upstream naming.
func (e Entity) AliasSet() (string, []string) {
	return e.Name, e.Aliases
}
