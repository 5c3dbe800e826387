package model

// PollSpec 一次投票的内容
type PollSpec struct {
	Title           string   `json:"title"`
	Options         []string `json:"options"`
	MultipleAnswers bool     `json:"multiple_answers"`
	Anonymous       bool     `json:"anonymous"`
}
