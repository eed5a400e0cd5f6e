package domain

// Memo represents a memo domain entity
type Memo struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

// NewMemo IDを持たない新しいメモを作成（IDはストレージが採番する）
func NewMemo(title, contents string) *Memo {
	return &Memo{
		Title:    title,
		Contents: contents,
	}
}

