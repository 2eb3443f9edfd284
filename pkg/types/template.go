package types

// TemplateInfo describes a resolved project skeleton.
type TemplateInfo struct {
	Name       string   `json:"name"`
	Files      []string `json:"files"`
	Language   string   `json:"language"`
	Frameworks []string `json:"frameworks"`

	// Selection records how the template was chosen: "auto" or the
	// explicit template name the caller asked for.
	Selection string `json:"selection"`
}

// Summary returns the metadata shape included in bootstrap stream events.
func (t *TemplateInfo) Summary() *TemplateSummary {
	return &TemplateSummary{Name: t.Name, Files: t.Files}
}
