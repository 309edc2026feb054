package types

type InteractionKind string

const (
	InteractionToolApproval InteractionKind = "tool_approval"
	InteractionQuestion     InteractionKind = "question"
	InteractionPlanReview   InteractionKind = "plan_review"
)

type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	Prompt      string           `json:"prompt"`
	Header      string           `json:"header,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	MultiSelect bool             `json:"multi_select,omitempty"`
}

// PendingInteraction identifies the earliest unanswered tool use in the tail
// of a session's messages. Derived on every scan, never stored on disk.
type PendingInteraction struct {
	Kind      InteractionKind `json:"kind"`
	ToolUseID string          `json:"tool_use_id"`
	ToolName  string          `json:"tool_name"`
	// Input is the raw tool input JSON.
	Input string `json:"input,omitempty"`
	// Questions is populated when Kind is InteractionQuestion.
	Questions []Question `json:"questions,omitempty"`
	// Plan is the plan markdown when Kind is InteractionPlanReview.
	Plan string `json:"plan,omitempty"`
}

func ClonePendingInteraction(p *PendingInteraction) *PendingInteraction {
	if p == nil {
		return nil
	}
	out := *p
	if p.Questions != nil {
		out.Questions = make([]Question, len(p.Questions))
		for i, q := range p.Questions {
			copied := q
			if q.Options != nil {
				copied.Options = append([]QuestionOption{}, q.Options...)
			}
			out.Questions[i] = copied
		}
	}
	return &out
}
