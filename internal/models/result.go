package models

import "time"

// SectionSpec is one entry of the fixed lesson outline.
type SectionSpec struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// SectionResult exists for every SectionSpec, failed or not.
type SectionResult struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Succeeded bool   `json:"succeeded"`
	Source    string `json:"source"`
}

// SectionProvenance reports how one section of the document was produced.
type SectionProvenance struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Provenance records which parts of a result came from a model and which
// are deterministic stand-ins.
type Provenance struct {
	Analysis string              `json:"analysis"`
	Tasks    string              `json:"tasks"`
	Sections []SectionProvenance `json:"sections"`
}

type ResultMetadata struct {
	GeneratedAt time.Time  `json:"generatedAt"`
	TotalTimeMs int64      `json:"totalTimeMs"`
	FromCache   bool       `json:"fromCache"`
	Provenance  Provenance `json:"provenance"`
}

// GenerationResult is the top-level unit returned to callers.
type GenerationResult struct {
	Content  string         `json:"content"`
	Analysis TopicAnalysis  `json:"analysis"`
	Tasks    []Task         `json:"tasks"`
	Metadata ResultMetadata `json:"metadata"`
}
