package toolkit

// I18nString carries a label or description in the locales the UI
// serves. EnUS is the fallback and must always be set.
type I18nString struct {
	EnUS   string `json:"en_US"`
	ZhHans string `json:"zh_Hans,omitempty"`
}

// ParamType enumerates the parameter value types tools accept.
type ParamType string

const (
	ParamTypeFile   ParamType = "file"
	ParamTypeNumber ParamType = "number"
	ParamTypeString ParamType = "string"
)

// Param describes one tool parameter for hosts and UIs.
type Param struct {
	Name        string     `json:"name"`
	Label       I18nString `json:"label"`
	Description I18nString `json:"human_description"`
	Type        ParamType  `json:"type"`
	Required    bool       `json:"required"`
	Default     any        `json:"default,omitempty"`
	FileAccepts []string   `json:"file_accepts,omitempty"`
}

// PDFContentParam is the file parameter every tool shares; only the
// description text varies between tools.
func PDFContentParam(description I18nString) Param {
	return Param{
		Name:        "pdf_content",
		Label:       I18nString{EnUS: "PDF Content", ZhHans: "PDF 内容"},
		Description: description,
		Type:        ParamTypeFile,
		Required:    true,
		FileAccepts: []string{"application/pdf"},
	}
}
