package openai

// TextOptions is the "text" block of a Responses request, e.g.
// {"format": {"type": "text"}, "verbosity": "low"}.
type TextOptions struct {
	Format    TextFormat    `json:"format"`
	Verbosity TextVerbosity `json:"verbosity,omitempty"`
}

// TextFormat selects the output format. Corrections are always plain text.
type TextFormat struct {
	Type TextFormatType `json:"type"`
}

type TextFormatType string

const TextFormatTypeText TextFormatType = "text"

func TextAsPlain(verbosity TextVerbosity) TextOptions {
	return TextOptions{
		Format:    TextFormat{Type: TextFormatTypeText},
		Verbosity: verbosity,
	}
}
