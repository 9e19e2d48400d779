package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ragserver/internal/domain"
	"ragserver/internal/port"
	"ragserver/internal/usecase"
)

// Server is the HTTP front of the pipeline: indexing, querying, evaluation
// and conversation endpoints.
type Server struct {
	indexer     *usecase.IndexUseCase
	querier     *usecase.QueryUseCase
	evaluator   *usecase.Evaluator
	convs       port.ConversationStore
	datasetPath string
	log         *logrus.Logger
}

// New creates a server over the given use cases. convs may be an
// unconfigured store; the conversation endpoints then answer 503.
func New(
	indexer *usecase.IndexUseCase,
	querier *usecase.QueryUseCase,
	evaluator *usecase.Evaluator,
	convs port.ConversationStore,
	datasetPath string,
	log *logrus.Logger,
) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		indexer:     indexer,
		querier:     querier,
		evaluator:   evaluator,
		convs:       convs,
		datasetPath: datasetPath,
		log:         log,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.POST("/index", s.handleIndex)
	r.POST("/query", s.handleQuery)
	r.DELETE("/documents/:doc_id", s.handleDeleteDocument)
	r.GET("/stats", s.handleStats)
	r.POST("/eval", s.handleEval)
	r.POST("/eval-document", s.handleEvalDocument)

	r.GET("/conversations", s.handleListConversations)
	r.POST("/conversations", s.handleCreateConversation)
	r.GET("/conversations/:id", s.handleGetConversation)
	r.PATCH("/conversations/:id", s.handleUpdateConversation)
	r.DELETE("/conversations/:id", s.handleDeleteConversation)
	r.POST("/conversations/:id/messages", s.handleSendMessage)

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.WithField("addr", addr).Info("Starting HTTP server")
	return s.Router().Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func (s *Server) storeConfigured() bool {
	return s.convs != nil && s.convs.Configured()
}

// requireStore answers 503 and returns false when no conversation store
// is configured.
func (s *Server) requireStore(c *gin.Context) bool {
	if !s.storeConfigured() {
		c.JSON(503, gin.H{"error": "Conversation store not configured. Set DATABASE_URL in the environment."})
		return false
	}
	return true
}

// logQuery records an answered query for analytics. Best effort: failures
// are logged, never surfaced. Queries that retrieved nothing are skipped.
func (s *Server) logQuery(ctx context.Context, query string, result usecase.QueryResult) {
	if !s.storeConfigured() || result.SourcesUsed == 0 {
		return
	}
	entry := domain.QueryLog{
		Query:       query,
		Answer:      result.Answer.Answer,
		HasAnswer:   result.Answer.HasAnswer,
		TimingMS:    result.TimingMS,
		TokenUsage:  result.Answer.Usage,
		SourcesUsed: result.SourcesUsed,
	}
	if err := s.convs.LogQuery(ctx, entry); err != nil {
		s.log.WithError(err).Warn("Failed to log query")
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(200, gin.H{"message": "RAG server is running."})
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":           "healthy",
		"store_configured": s.storeConfigured(),
	}
	stats, err := s.indexer.Stats(c.Request.Context())
	if err != nil {
		resp["status"] = fmt.Sprintf("unhealthy: %v", err)
	} else {
		resp["index_stats"] = stats
	}
	c.JSON(200, resp)
}

func (s *Server) handleIndex(c *gin.Context) {
	var req struct {
		Text    string `json:"text"`
		Source  string `json:"source"`
		Title   string `json:"title"`
		Section string `json:"section"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(400, gin.H{"error": "Text cannot be empty"})
		return
	}
	if req.Source == "" {
		req.Source = "user_upload"
	}
	if req.Title == "" {
		req.Title = "Uploaded Document"
	}

	result, err := s.indexer.IndexDocument(c.Request.Context(), usecase.IndexRequest{
		Text:    req.Text,
		Source:  req.Source,
		Title:   req.Title,
		Section: req.Section,
	})
	if errors.Is(err, usecase.ErrNoChunks) {
		c.JSON(200, gin.H{"success": false, "chunks_indexed": 0, "message": "No chunks created"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"success":        true,
		"doc_id":         result.DocID,
		"chunks_indexed": result.ChunksIndexed,
		"message":        fmt.Sprintf("Successfully indexed %d chunks", result.ChunksIndexed),
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		Query         string `json:"query"`
		TopKRetrieval int    `json:"top_k_retrieval"`
		TopKRerank    int    `json:"top_k_rerank"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(400, gin.H{"error": "Query cannot be empty"})
		return
	}

	result, err := s.querier.Answer(c.Request.Context(), req.Query, req.TopKRetrieval, req.TopKRerank)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	s.logQuery(c.Request.Context(), req.Query, result)

	c.JSON(200, gin.H{
		"answer":       result.Answer.Answer,
		"citations":    result.Answer.Citations,
		"has_answer":   result.Answer.HasAnswer,
		"timing_ms":    result.TimingMS,
		"token_usage":  result.Answer.Usage,
		"sources_used": result.SourcesUsed,
	})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	docID := c.Param("doc_id")
	if err := s.indexer.DeleteDocument(c.Request.Context(), docID); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "doc_id": docID})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.indexer.Stats(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "stats": stats})
}

func (s *Server) handleEval(c *gin.Context) {
	items, err := usecase.LoadDataset(s.datasetPath)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	report, err := s.evaluator.EvaluateDataset(c.Request.Context(), items)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"success":   true,
		"aggregate": report.Aggregate,
		"results":   report.Results,
	})
}

func (s *Server) handleEvalDocument(c *gin.Context) {
	var req struct {
		Text  string `json:"text"`
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(400, gin.H{"error": "Document text cannot be empty"})
		return
	}
	if req.Title == "" {
		req.Title = "Uploaded Document"
	}

	result, err := s.evaluator.EvaluateDocument(c.Request.Context(), req.Text, req.Title)
	if errors.Is(err, usecase.ErrNoQAPairs) {
		c.JSON(500, gin.H{"error": "Failed to generate QA pairs"})
		return
	}
	if errors.Is(err, usecase.ErrNoChunks) {
		c.JSON(500, gin.H{"error": "Failed to index document"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"document_indexed": gin.H{
			"doc_id": result.DocID,
			"chunks": result.ChunksIndexed,
		},
		"qa_pairs_generated": len(result.QAPairs),
		"aggregate":          result.Report.Aggregate,
		"results":            result.Report.Results,
	})
}

func (s *Server) handleListConversations(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	conversations, err := s.convs.ListConversations(c.Request.Context(), 0)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "conversations": conversations})
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	// The body is optional; an absent one means the default title.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	conv, err := s.convs.CreateConversation(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "conversation": conv})
}

func (s *Server) handleGetConversation(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	conv, err := s.convs.GetConversation(c.Request.Context(), c.Param("id"))
	if errors.Is(err, port.ErrNotFound) {
		c.JSON(404, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "conversation": conv})
}

func (s *Server) handleUpdateConversation(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(400, gin.H{"error": "Title cannot be empty"})
		return
	}

	conv, err := s.convs.RenameConversation(c.Request.Context(), c.Param("id"), req.Title)
	if errors.Is(err, port.ErrNotFound) {
		c.JSON(404, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "conversation": conv})
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	err := s.convs.DeleteConversation(c.Request.Context(), c.Param("id"))
	if errors.Is(err, port.ErrNotFound) {
		c.JSON(404, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "message": "Conversation deleted"})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var req struct {
		Query         string `json:"query"`
		TopKRetrieval int    `json:"top_k_retrieval"`
		TopKRerank    int    `json:"top_k_rerank"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(400, gin.H{"error": "Query cannot be empty"})
		return
	}

	ctx := c.Request.Context()
	conversationID := c.Param("id")

	if _, err := s.convs.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			c.JSON(404, gin.H{"error": "Conversation not found"})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	userMsg, err := s.convs.AddMessage(ctx, domain.Message{
		ConversationID: conversationID,
		Role:           "user",
		Content:        req.Query,
	})
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	result, err := s.querier.Answer(ctx, req.Query, req.TopKRetrieval, req.TopKRerank)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	assistantMsg, err := s.convs.AddMessage(ctx, domain.Message{
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        result.Answer.Answer,
		Citations:      result.Answer.Citations,
		TimingMS:       result.TimingMS,
		TokenUsage:     result.Answer.Usage,
		SourcesUsed:    result.SourcesUsed,
	})
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	s.logQuery(ctx, req.Query, result)

	c.JSON(200, gin.H{
		"success":           true,
		"user_message":      userMsg,
		"assistant_message": assistantMsg,
		"has_answer":        result.Answer.HasAnswer,
	})
}
