package openai

/*
InputParameters is what callers control for one Responses API request.
Store follows Background since only stored responses can be polled.
*/
type InputParameters struct {
	Model              string       `json:"model"`
	Instructions       string       `json:"instructions,omitempty"`
	MaxOutputTokens    *int         `json:"max_output_tokens,omitempty"`
	Input              []InputItem  `json:"input"`
	PreviousResponseID string       `json:"previous_response_id,omitempty"` // chain with server-side memory
	Reasoning          *Reasoning   `json:"reasoning,omitempty"`            // reasoning models reject temperature
	Temperature        *float64     `json:"temperature,omitempty"`
	Text               *TextOptions `json:"text,omitempty"`
	Background         bool         `json:"background,omitempty"`
}

// ----- Request types we send -----

// InputItem mirrors [{"role":"user","content":"..."}].
type InputItem struct {
	Role    InputRole `json:"role"`
	Content any       `json:"content"`
}

type requestPayload struct {
	Model              string       `json:"model"`
	Instructions       string       `json:"instructions,omitempty"`
	MaxOutputTokens    *int         `json:"max_output_tokens,omitempty"`
	Input              []InputItem  `json:"input"`
	PreviousResponseID string       `json:"previous_response_id,omitempty"`
	Reasoning          *Reasoning   `json:"reasoning,omitempty"`
	Store              bool         `json:"store"`
	Temperature        *float64     `json:"temperature,omitempty"`
	Background         bool         `json:"background,omitempty"`
	Text               *TextOptions `json:"text,omitempty"`
}

// ----- Response types we parse -----

// responseObject only includes the fields LLMRunMetadata and text extraction need.
type responseObject struct {
	ID                 string       `json:"id"`
	Object             string       `json:"object"`
	CreatedAt          int64        `json:"created_at,omitempty"` // epoch seconds
	Background         bool         `json:"background,omitempty"`
	Model              string       `json:"model"`
	Status             string       `json:"status"` // "completed", "in_progress", "failed", etc.
	Output             []outputItem `json:"output"`
	Usage              *usageBlock  `json:"usage,omitempty"`
	PreviousResponseID string       `json:"previous_response_id,omitempty"`
	Error              any          `json:"error,omitempty"`

	Temperature float64    `json:"temperature,omitempty"`
	Reasoning   *Reasoning `json:"reasoning,omitempty"`
}

type outputItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"` // typically "message" or reasoning events
	Role    string        `json:"role,omitempty"`
	Content []contentItem `json:"content,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`           // e.g., "output_text"
	Text string `json:"text,omitempty"` // set when type == "output_text"
}

type usageBlock struct {
	InputTokens         int                  `json:"input_tokens"`
	InputTokensDetails  *inputTokensDetails  `json:"input_tokens_details"`
	OutputTokens        int                  `json:"output_tokens"`
	TotalTokens         int                  `json:"total_tokens"`
	OutputTokensDetails *outputTokensDetails `json:"output_tokens_details,omitempty"`
}

type inputTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type outputTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

type Reasoning struct {
	Effort  *Effort  `json:"effort,omitempty"`
	Summary *Summary `json:"summary,omitempty"` // organization must be verified to get summaries
}

// LLMRunMetadata captures how a correction was generated; it is stored next to the run artifacts.
type LLMRunMetadata struct {
	ResponseID      string `json:"response_id"`
	ResponseLogsUrl string `json:"response_logs_url"` // https://platform.openai.com/logs/<ResponseID>
	Model           string `json:"model"`             // e.g., "gpt-4.1-mini"
	ModelSnapshot   string `json:"model_snapshot"`    // e.g. "2025-04-14" if present
	Status          string `json:"status"`
	ReasoningEffort Effort `json:"reasoning_effort,omitempty"`

	Temperature float64 `json:"temperature"`

	TokensIn        int `json:"tokens_in"`
	TokensCached    int `json:"tokens_cached"`
	TokensOut       int `json:"tokens_out"`
	TokensReasoning int `json:"tokens_reasoning"`
	TokensTotal     int `json:"tokens_total"`

	StartedAt  int64 `json:"started_at"`
	FinishedAt int64 `json:"finished_at"`
	Elapsed    int64 `json:"elapsed"` // milliseconds
}
