package doctree

// Chunk is a bounded text segment of one article, ready for embedding.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata locates a chunk in the hierarchy. ArticleNumber is null when
// the article label carries no identifier; IsPartial is only written when true.
type ChunkMetadata struct {
	Chapter       string  `json:"chapter"`
	Section       string  `json:"section"`
	Article       string  `json:"article"`
	ArticleNumber *string `json:"article_number"`
	IsPartial     bool    `json:"is_partial,omitempty"`
}

// Number returns the article number or "" when absent.
func (m ChunkMetadata) Number() string {
	if m.ArticleNumber == nil {
		return ""
	}
	return *m.ArticleNumber
}
