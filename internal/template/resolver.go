// Package template provides the project-skeleton selection contract and
// a catalog-backed default resolver.
package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/appforge-ai/appforge/pkg/types"
)

// AutoSelection requests automatic template selection.
const AutoSelection = "auto"

// Resolver picks a pre-built project skeleton for a generation request.
type Resolver interface {
	Resolve(ctx context.Context, query, selection, language string, frameworks []string) (*types.TemplateInfo, error)
}

// CatalogResolver selects templates from a static catalog. Auto
// selection prefers the first template matching the requested language
// and the most requested frameworks.
type CatalogResolver struct {
	catalog []types.TemplateInfo
}

// NewCatalogResolver creates a resolver over the built-in catalog.
func NewCatalogResolver() *CatalogResolver {
	return &CatalogResolver{catalog: builtinCatalog()}
}

// Resolve implements Resolver.
func (r *CatalogResolver) Resolve(ctx context.Context, query, selection, language string, frameworks []string) (*types.TemplateInfo, error) {
	if selection != "" && selection != AutoSelection {
		for _, tpl := range r.catalog {
			if tpl.Name == selection {
				resolved := tpl
				resolved.Selection = selection
				return &resolved, nil
			}
		}
		return nil, fmt.Errorf("template not found: %s", selection)
	}

	best := r.catalog[0]
	bestScore := -1
	for _, tpl := range r.catalog {
		score := 0
		if strings.EqualFold(tpl.Language, language) {
			score += 10
		}
		for _, want := range frameworks {
			for _, have := range tpl.Frameworks {
				if strings.EqualFold(want, have) {
					score += 2
				}
			}
		}
		if score > bestScore {
			best = tpl
			bestScore = score
		}
	}

	resolved := best
	resolved.Selection = AutoSelection
	return &resolved, nil
}

func builtinCatalog() []types.TemplateInfo {
	return []types.TemplateInfo{
		{
			Name:       "react-vite-starter",
			Language:   "typescript",
			Frameworks: []string{"react", "vite"},
			Files: []string{
				"index.html",
				"package.json",
				"src/App.tsx",
				"src/main.tsx",
				"src/index.css",
				"vite.config.ts",
			},
		},
		{
			Name:       "next-app-starter",
			Language:   "typescript",
			Frameworks: []string{"react", "next"},
			Files: []string{
				"package.json",
				"app/layout.tsx",
				"app/page.tsx",
				"app/globals.css",
				"next.config.mjs",
			},
		},
		{
			Name:       "vue-vite-starter",
			Language:   "typescript",
			Frameworks: []string{"vue", "vite"},
			Files: []string{
				"index.html",
				"package.json",
				"src/App.vue",
				"src/main.ts",
				"vite.config.ts",
			},
		},
		{
			Name:       "static-site-starter",
			Language:   "javascript",
			Frameworks: []string{},
			Files: []string{
				"index.html",
				"styles.css",
				"script.js",
			},
		},
	}
}
