package models

// Task is one practice exercise. CorrectAnswer holds a string or number for
// single/text/number tasks and a list for multiple-choice tasks.
type Task struct {
	ID            string   `json:"id" validate:"required"`
	Type          string   `json:"type" validate:"oneof=single multiple text number"`
	Difficulty    string   `json:"difficulty" validate:"oneof=easy medium hard"`
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options"`
	CorrectAnswer any      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Hint          string   `json:"hint"`
}
