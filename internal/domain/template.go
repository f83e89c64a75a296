package domain

// AuditQuestion is one question in an industry template
type AuditQuestion struct {
	ID       string   `json:"id" yaml:"id"`
	Field    string   `json:"field" yaml:"field"`
	Text     string   `json:"text" yaml:"text"`
	Type     string   `json:"type" yaml:"type"` // select, text, multiselect
	Options  []string `json:"options,omitempty" yaml:"options"`
	Required bool     `json:"required" yaml:"required"`
}

// Template is a static question set for an industry
type Template struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Industry    string          `json:"industry" yaml:"industry"`
	Description string          `json:"description" yaml:"description"`
	Questions   []AuditQuestion `json:"questions" yaml:"questions"`
}

// Industry is a catalog entry
type Industry struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
