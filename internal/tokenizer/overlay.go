package tokenizer

// Overlay extends a base vocabulary for a single request. Pieces missing from the
// base table get ids above base.Size() instead of <unk>, so text that the model copies
// from its input survives detokenisation. An Overlay is not safe for concurrent use.
type Overlay struct {
	base  *Vocab
	extra []string
	ids   map[string]int
}

// NewOverlay creates an empty overlay over base.
func NewOverlay(base *Vocab) *Overlay {
	return &Overlay{base: base, ids: make(map[string]int)}
}

// Lookup returns the id of piece, assigning an overlay id if needed.
func (o *Overlay) Lookup(piece string) int {
	if id, ok := o.base.ID(piece); ok {
		return id
	}
	if id, ok := o.ids[piece]; ok {
		return id
	}
	id := o.base.Size() + len(o.extra)
	o.ids[piece] = id
	o.extra = append(o.extra, piece)
	return id
}

// Piece returns the piece for id from the base table or the overlay.
func (o *Overlay) Piece(id int) string {
	if id < o.base.Size() {
		return o.base.Piece(id)
	}
	i := id - o.base.Size()
	if i >= len(o.extra) {
		return UnkToken
	}
	return o.extra[i]
}

// Size returns the total number of ids addressable through the overlay.
func (o *Overlay) Size() int { return o.base.Size() + len(o.extra) }

// Base returns the underlying vocabulary.
func (o *Overlay) Base() *Vocab { return o.base }
