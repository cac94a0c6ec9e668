package domain

// BoardUser is the creator reference embedded in provider board payloads.
type BoardUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Board is a remote board entity. It is never persisted locally.
// CreatedByName is derived on fetch; Trash is a local-only annotation point
// for soft-delete UI and is always false for freshly fetched boards.
type Board struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CreatedBy     BoardUser `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
	Trash         bool      `json:"trash"`
}

// CreatorNamePlaceholder is used when the remote payload omits the creator name.
const CreatorNamePlaceholder = "??"

// Format fills the derived fields on a freshly fetched board.
func (b *Board) Format() {
	b.CreatedByName = b.CreatedBy.Name
	if b.CreatedByName == "" {
		b.CreatedByName = CreatorNamePlaceholder
	}
	b.Trash = false
}
