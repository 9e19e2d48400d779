package domain

import "time"

// ChunkMetadata identifies where a chunk came from and its place in the
// source document. Position is zero-based and unique per document;
// TotalChunks is fixed for all chunks of one document at creation time.
type ChunkMetadata struct {
	Source      string `json:"source"`
	Title       string `json:"title"`
	Section     string `json:"section"`
	Position    int    `json:"position"`
	TotalChunks int    `json:"total_chunks"`
}

// Chunk is a bounded, overlapping slice of a source document.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// VectorRecord is what the vector store gateway persists: one embedded
// chunk. ID is "{doc_id}_{position}" and is unique within the collection;
// DocID groups all records of one ingested document and is the unit of
// deletion.
type VectorRecord struct {
	ID        string
	DocID     string
	Embedding []float32
	Text      string
	Metadata  ChunkMetadata
}

// RetrievedDocument is a vector search hit. Score is cosine similarity,
// higher is more similar.
type RetrievedDocument struct {
	ID       string        `json:"id"`
	Score    float64       `json:"score"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RerankedDocument is a retrieved document after cross-encoder scoring.
// RerankScore supersedes the original similarity score for ordering.
type RerankedDocument struct {
	RetrievedDocument
	RerankScore   float64 `json:"rerank_score"`
	OriginalScore float64 `json:"original_score"`
}

// Citation points a generated answer back at one of the contexts it was
// grounded on. Number is 1-based and matches the context ordering in the
// prompt.
type Citation struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the generator's output. HasAnswer is false when the model
// refused for lack of context or when no contexts were supplied at all.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	HasAnswer bool       `json:"has_answer"`
	Usage     TokenUsage `json:"usage"`
}

// IndexStats describes the vector collection.
type IndexStats struct {
	TotalVectors int64   `json:"total_vectors"`
	Dimension    int     `json:"dimension"`
	Fullness     float64 `json:"index_fullness"`
}

// QAPair is one evaluation item: a question, the answer it should produce,
// and the keywords a correct answer must contain.
type QAPair struct {
	ID               int      `json:"id"`
	Question         string   `json:"question"`
	ExpectedAnswer   string   `json:"expected_answer"`
	RelevantKeywords []string `json:"relevant_keywords"`
}

// EvalItem is a QA pair plus the document that grounds it, as stored in an
// evaluation dataset file.
type EvalItem struct {
	ID               int      `json:"id"`
	Question         string   `json:"question"`
	ContextDocument  string   `json:"context_document"`
	ExpectedAnswer   string   `json:"expected_answer"`
	RelevantKeywords []string `json:"relevant_keywords"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages,omitempty"`
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	Citations      []Citation `json:"citations"`
	TimingMS       float64    `json:"timing_ms"`
	TokenUsage     TokenUsage `json:"token_usage"`
	SourcesUsed    int        `json:"sources_used"`
	CreatedAt      time.Time  `json:"created_at"`
}

// QueryLog is one analytics row recorded per answered query.
type QueryLog struct {
	ID          string     `json:"id"`
	Query       string     `json:"query"`
	Answer      string     `json:"answer"`
	HasAnswer   bool       `json:"has_answer"`
	TimingMS    float64    `json:"timing_ms"`
	TokenUsage  TokenUsage `json:"token_usage"`
	SourcesUsed int        `json:"sources_used"`
	CreatedAt   time.Time  `json:"created_at"`
}
