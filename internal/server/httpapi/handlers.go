package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/auth"
	"github.com/avoronov/contenthub/internal/server/models"
	"github.com/avoronov/contenthub/internal/server/services"
)

// Service dependencies of the HTTP surface. The concrete services satisfy
// these; tests substitute fakes.

type SessionManager interface {
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type UserRegistrar interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
}

type ContentManager interface {
	StartConversation(ctx context.Context, userID int64) (*models.Conversation, error)
	ContinueConversation(ctx context.Context, userID, conversationID int64, text string) (*models.Turn, error)
	GenerateText(ctx context.Context, userID int64, prompt string) (*models.Turn, error)
	SummarizeText(ctx context.Context, userID int64, text string) (*models.Turn, error)
	ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error)
	ListTurns(ctx context.Context, userID, conversationID int64) ([]*models.Turn, error)
	DeleteConversation(ctx context.Context, userID, conversationID int64) error
}

type SentimentAnalyzer interface {
	Analyze(ctx context.Context, userID int64, text string) (*models.Turn, error)
}

type ImageManager interface {
	Generate(ctx context.Context, userID int64, prompt string) (*models.Image, string, error)
	PresignUpload(ctx context.Context, userID int64, prompt string) (*models.Image, string, error)
	PresignDownload(ctx context.Context, userID, imageID int64) (string, error)
	ListImages(ctx context.Context, userID int64) ([]*models.Image, error)
}

type Server struct {
	sessions  SessionManager
	users     UserRegistrar
	content   ContentManager
	sentiment SentimentAnalyzer
	images    ImageManager
	logger    logging.Logger
}

// NewHandler wires the full HTTP surface: routes, the request logger and the
// authentication gate.
func NewHandler(
	codec *auth.Codec,
	resolver IdentityResolver,
	sessions SessionManager,
	users UserRegistrar,
	content ContentManager,
	sentiment SentimentAnalyzer,
	images ImageManager,
	logger logging.Logger,
) http.Handler {
	s := &Server{
		sessions:  sessions,
		users:     users,
		content:   content,
		sentiment: sentiment,
		images:    images,
		logger:    logger.With("module", "httpapi"),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh-token", s.handleRefresh)
	mux.HandleFunc("POST /api/user/register", s.handleRegister)

	mux.HandleFunc("POST /api/ai/start-conversation", requireAuth(s.handleStartConversation))
	mux.HandleFunc("POST /api/ai/do-conversation", requireAuth(s.handleDoConversation))
	mux.HandleFunc("POST /api/ai/generate-text", requireAuth(s.handleGenerateText))
	mux.HandleFunc("POST /api/ai/summarize", requireAuth(s.handleSummarize))
	mux.HandleFunc("POST /api/ai/analyze-sentiment", requireAuth(s.handleAnalyzeSentiment))
	mux.HandleFunc("POST /api/ai/generate-image", requireAuth(s.handleGenerateImage))

	mux.HandleFunc("GET /api/ai/conversations", requireAuth(s.handleListConversations))
	mux.HandleFunc("GET /api/ai/conversation", requireAuth(s.handleListTurns))
	mux.HandleFunc("DELETE /api/ai/conversation", requireAuth(s.handleDeleteConversation))

	mux.HandleFunc("GET /api/images", requireAuth(s.handleListImages))
	mux.HandleFunc("POST /api/images/upload-url", requireAuth(s.handleUploadURL))
	mux.HandleFunc("GET /api/images/{id}/download-url", requireAuth(s.handleDownloadURL))

	gate := NewGate(codec, resolver, logger)
	return chainMiddlewares(mux, gate.Middleware, withLogging(s.logger))
}

// -------- DTOs --------

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type inputTextRequest struct {
	InputText string `json:"input_text"`
}

type generatedTextResponse struct {
	ConversationID int64  `json:"conversation_id"`
	GeneratedText  string `json:"generated_text"`
}

type conversationResponse struct {
	ConversationID int64     `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type turnResponse struct {
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Kind        string    `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`
}

type imageResponse struct {
	ImageID   int64  `json:"image_id"`
	ObjectKey string `json:"object_key"`
	Prompt    string `json:"prompt,omitempty"`
	URL       string `json:"url,omitempty"`
}

// -------- auth handlers --------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	pair, err := s.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrAuthenticationFailed) {
			unauthorized(w)
			return
		}
		badRequest(w, "could not start session")
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Refresh-Token")
	if token == "" {
		unauthorized(w)
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), token)
	if err != nil {
		unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		badRequest(w, "username and password are required")
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user_id": user.ID, "username": user.Username})
}

// -------- conversation handlers --------

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request, id *Identity) {
	conv, err := s.content.StartConversation(r.Context(), id.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": conv.ID})
}

func conversationIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("conversationId"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleDoConversation(w http.ResponseWriter, r *http.Request, id *Identity) {
	convID, ok := conversationIDParam(r)
	if !ok {
		badRequest(w, "conversationId query parameter is required")
		return
	}

	var req inputTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.InputText) == "" {
		badRequest(w, "input_text is required")
		return
	}

	turn, err := s.content.ContinueConversation(r.Context(), id.UserID, convID, req.InputText)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generatedTextResponse{
		ConversationID: turn.ConversationID,
		GeneratedText:  turn.Content,
	})
}

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request, id *Identity) {
	s.handleSingleShot(w, r, id, s.content.GenerateText)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request, id *Identity) {
	s.handleSingleShot(w, r, id, s.content.SummarizeText)
}

func (s *Server) handleSingleShot(w http.ResponseWriter, r *http.Request, id *Identity,
	run func(ctx context.Context, userID int64, text string) (*models.Turn, error)) {

	var req inputTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.InputText) == "" {
		badRequest(w, "input_text is required")
		return
	}

	turn, err := run(r.Context(), id.UserID, req.InputText)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generatedTextResponse{
		ConversationID: turn.ConversationID,
		GeneratedText:  turn.Content,
	})
}

func (s *Server) handleAnalyzeSentiment(w http.ResponseWriter, r *http.Request, id *Identity) {
	s.handleSingleShot(w, r, id, s.sentiment.Analyze)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, id *Identity) {
	convs, err := s.content.ListConversations(r.Context(), id.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationResponse{ConversationID: c.ID, CreatedAt: c.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request, id *Identity) {
	convID, ok := conversationIDParam(r)
	if !ok {
		badRequest(w, "conversationId query parameter is required")
		return
	}

	turns, err := s.content.ListTurns(r.Context(), id.UserID, convID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnResponse{
			Role:        string(t.Role),
			Content:     t.Content,
			Kind:        string(t.Kind),
			GeneratedAt: t.GeneratedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request, id *Identity) {
	convID, ok := conversationIDParam(r)
	if !ok {
		badRequest(w, "conversationId query parameter is required")
		return
	}
	if err := s.content.DeleteConversation(r.Context(), id.UserID, convID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -------- image handlers --------

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request, id *Identity) {
	var req inputTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.InputText) == "" {
		badRequest(w, "input_text is required")
		return
	}

	img, url, err := s.images.Generate(r.Context(), id.UserID, req.InputText)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, imageResponse{
		ImageID:   img.ID,
		ObjectKey: img.ObjectKey,
		Prompt:    img.Prompt,
		URL:       url,
	})
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request, id *Identity) {
	imgs, err := s.images.ListImages(r.Context(), id.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]imageResponse, 0, len(imgs))
	for _, img := range imgs {
		out = append(out, imageResponse{ImageID: img.ID, ObjectKey: img.ObjectKey, Prompt: img.Prompt, URL: img.URL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request, id *Identity) {
	// Prompt is optional metadata for uploaded images.
	var req inputTextRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	img, url, err := s.images.PresignUpload(r.Context(), id.UserID, req.InputText)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, imageResponse{
		ImageID:   img.ID,
		ObjectKey: img.ObjectKey,
		URL:       url,
	})
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request, id *Identity) {
	imageID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || imageID <= 0 {
		badRequest(w, "invalid image id")
		return
	}

	url, err := s.images.PresignDownload(r.Context(), id.UserID, imageID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// -------- error mapping and JSON helpers --------

// writeServiceError maps service sentinels onto HTTP statuses with stable
// generic messages.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, common.ErrAIService):
		writeError(w, http.StatusBadGateway, "ai service unavailable")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
		internalError(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

// unauthorized never explains why: expired, malformed and forged tokens all
// read the same from the outside.
func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "internal server error")
}
