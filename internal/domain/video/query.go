package video

// VectorQuery asks the vector index for the TopK nearest neighbours of Vector.
type VectorQuery struct {
	Vector        []float32
	TopK          int
	PublishedOnly bool
}

// LexicalQuery asks the lexical index for documents matching any of Terms
// (title, description, tags) or carrying any of Tags.
type LexicalQuery struct {
	Terms         []string
	Tags          []string
	Exclude       []ID
	Size          int
	PublishedOnly bool
}
