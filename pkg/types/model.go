package types

// Element is one content element emitted by an extraction engine.
// Its shape is engine-defined and passed through untouched.
type Element = map[string]any

type ExtractionResult struct {
	Filename string    `json:"filename"`
	Elements []Element `json:"elements"`
}

type BatchResult struct {
	Documents []ExtractionResult `json:"documents"`
}
