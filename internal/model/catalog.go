package model

import "strings"

// ModelOption is one selectable generation model.
type ModelOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

var knownModels = map[string]ModelOption{
	"gemini-2.5-flash-preview-04-17": {
		ID:          "gemini-2.5-flash-preview-04-17",
		Label:       "Gemini 2.5 Flash",
		Description: "Fast responses for everyday questions about a video.",
	},
	"gemini-2.5-pro-preview-06-05": {
		ID:          "gemini-2.5-pro-preview-06-05",
		Label:       "Gemini 2.5 Pro",
		Description: "Slower, more thorough reasoning over long footage.",
	},
}

// Catalog is the ordered set of models a deployment allows.
type Catalog struct {
	options []ModelOption
	def     string
}

// NewCatalog builds a catalog from model ids. Unknown ids get their id as
// label. The default falls back to the first entry when def is not listed.
func NewCatalog(ids []string, def string) *Catalog {
	c := &Catalog{}
	seen := make(map[string]bool)
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		opt, ok := knownModels[id]
		if !ok {
			opt = ModelOption{ID: id, Label: id}
		}
		c.options = append(c.options, opt)
	}
	if seen[def] {
		c.def = def
	} else if len(c.options) > 0 {
		c.def = c.options[0].ID
	}
	return c
}

// Options returns the models in configuration order.
func (c *Catalog) Options() []ModelOption {
	out := make([]ModelOption, len(c.options))
	copy(out, c.options)
	return out
}

// Default returns the id used when a caller names no model.
func (c *Catalog) Default() string { return c.def }

// Lookup resolves an id; an empty id resolves to the default.
func (c *Catalog) Lookup(id string) (ModelOption, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = c.def
	}
	for _, opt := range c.options {
		if opt.ID == id {
			return opt, true
		}
	}
	return ModelOption{}, false
}
