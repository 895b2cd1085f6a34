package domain

// ProjectFile is one source file sent along with a streamed run
type ProjectFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
