package prompt

import "ledgerchat/internal/types"

// SuggestionsPrompt asks for a JSON object {"suggestions": [...]}.
const SuggestionsPrompt = "Based on the content of the reference URLs, suggest 3 to 4 short questions " +
	"a user could ask about them. Keep each question under 15 words. " +
	`Respond only with a JSON object of the form {"suggestions": ["question 1", "question 2"]}.`

// mindMapShape describes the JSON the mind map flow expects.
const mindMapShape = `{"label": "topic", "detail": "one sentence", "children": [ ...nodes of the same shape ]}`

var complexityInstructions = map[types.Complexity]string{
	types.ComplexitySimple: "Keep the map shallow and wide: at most 2 levels below the root, " +
		"up to 6 branches, short labels and no more than one sentence of detail.",
	types.ComplexityModerate: "Use a moderate depth: up to 3 levels below the root " +
		"with 3 to 5 children per node.",
	types.ComplexityComplex: "Be exhaustive: go 4 or more levels deep where the sources allow, " +
		"covering every significant topic and sub-topic, each with a detail sentence.",
}

// ComplexityInstruction returns the depth/breadth guidance for a level.
// Unknown levels get the moderate guidance.
func ComplexityInstruction(c types.Complexity) string {
	if s, ok := complexityInstructions[c]; ok {
		return s
	}
	return complexityInstructions[types.ComplexityModerate]
}

// MindMapPrompt asks for a mind map of the attached sources as a JSON tree.
func MindMapPrompt(c types.Complexity) string {
	return "Summarize the reference URLs and attached documents as a mind map. " +
		ComplexityInstruction(c) + " " +
		"Respond only with a single JSON object of the form " + mindMapShape + "."
}
