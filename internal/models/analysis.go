package models

// Complexity grades a topic on two 1-10 scales.
type Complexity struct {
	Base          int      `json:"base" validate:"min=1,max=10"`
	Depth         int      `json:"depth" validate:"min=1,max=10"`
	Prerequisites []string `json:"prerequisites"`
}

type Connections struct {
	RelatedTopics    []string `json:"relatedTopics"`
	RealApplications []string `json:"realApplications"`
	Industries       []string `json:"industries"`
}

// TopicAnalysis classifies a topic for the downstream generators. It is
// created once per (topic, courseName) pair and passed by value afterwards.
type TopicAnalysis struct {
	Topic                string      `json:"topic" validate:"required"`
	CourseName           string      `json:"courseName" validate:"required"`
	Nature               []string    `json:"nature" validate:"min=1,dive,oneof=theoretical practical technical creative analytical historical"`
	Complexity           Complexity  `json:"complexity"`
	ContentFormats       []string    `json:"contentFormats" validate:"min=1,dive,oneof=text code diagram formula example exercise timeline comparison"`
	Connections          Connections `json:"connections"`
	KeyTerms             []string    `json:"keyTerms" validate:"min=5,max=7,dive,required"`
	Tone                 string      `json:"tone" validate:"oneof=academic conversational technical inspiring"`
	EstimatedTimeMinutes int         `json:"estimatedTimeMinutes" validate:"min=1"`
	Source               string      `json:"source,omitempty"`
}

// PrimaryNature returns the first listed nature, used as the topic type in prompts.
func (a TopicAnalysis) PrimaryNature() string {
	if len(a.Nature) == 0 {
		return "theoretical"
	}
	return a.Nature[0]
}
