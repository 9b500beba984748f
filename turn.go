package errand

// Response classifications reported to front-ends for each turn.
const (
	ResponseGeneralKnowledge = "general_knowledge"
	ResponseToolSuccess      = "tool_success"
	ResponseToolFailure      = "tool_failure"
)

// ResponseType classifies the turn: general_knowledge when no tool ran,
// otherwise the outcome of the last tool invocation.
func (r Result) ResponseType() string {
	if len(r.Steps) == 0 {
		return ResponseGeneralKnowledge
	}
	if r.Steps[len(r.Steps)-1].Failed {
		return ResponseToolFailure
	}
	return ResponseToolSuccess
}

// ToolNames returns the tools invoked this turn, in order, de-duplicated.
func (r Result) ToolNames() []string {
	names := make([]string, 0, len(r.Steps))
	seen := make(map[string]struct{}, len(r.Steps))
	for _, step := range r.Steps {
		if _, dup := seen[step.Call.Name]; dup {
			continue
		}
		seen[step.Call.Name] = struct{}{}
		names = append(names, step.Call.Name)
	}
	return names
}
