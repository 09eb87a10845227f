package prompts

// Data is the value every template renders against.
type Data struct {
	Topic          string
	CourseName     string
	TopicType      string
	Tone           string
	KeyTerms       []string
	Prerequisites  []string
	RelatedTopics  []string
	Applications   []string
	ContentFormats []string
	BaseComplexity int
	Depth          int
	SectionTitle   string
	TaskCount      int
	EasyCount      int
	MediumCount    int
	HardCount      int
}
