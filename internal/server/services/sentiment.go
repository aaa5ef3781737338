package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/dbx"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/aiclient"
	"github.com/avoronov/contenthub/internal/server/models"
	"github.com/avoronov/contenthub/internal/server/repositories/repomanager"
)

// SentimentService analyzes the emotional tone of a text through the
// natural-language upstream and records the exchange as a conversation.
type SentimentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	nlp         aiclient.Caller
	logger      logging.Logger

	now func() time.Time
}

func NewSentimentService(db *sql.DB, m repomanager.RepositoryManager, nlp aiclient.Caller, logger logging.Logger) *SentimentService {
	return &SentimentService{
		db:          db,
		repomanager: m,
		nlp:         nlp,
		logger:      logger.With("module", "sentiment_service"),
		now:         time.Now,
	}
}

// FormatSentiment renders a document sentiment the way it is stored and
// returned to clients.
func FormatSentiment(s aiclient.Sentiment) string {
	return fmt.Sprintf("score: %v, magnitude: %v", s.Score, s.Magnitude)
}

// Analyze runs sentiment analysis on text and persists both the input and
// the formatted result as turns of a fresh conversation.
func (s *SentimentService) Analyze(ctx context.Context, userID int64, text string) (*models.Turn, error) {
	var resp aiclient.SentimentResponse
	if err := s.nlp.Post(ctx, aiclient.AnalyzeSentimentPath, aiclient.PlainTextSentimentRequest(text), &resp); err != nil {
		s.logger.Error(ctx, "sentiment upstream call failed", "error", err.Error())
		return nil, fmt.Errorf("%w: %v", common.ErrAIService, err)
	}
	result := FormatSentiment(resp.DocumentSentiment)

	var out *models.Turn
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		conv, err := s.repomanager.Conversations(tx).Create(ctx, &models.Conversation{UserID: userID})
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Turns(tx).Create(ctx, &models.Turn{
			ConversationID: conv.ID,
			UserID:         userID,
			Role:           models.TurnRoleUser,
			Source:         models.SourceGoogleNLP,
			Kind:           models.ContentText,
			Content:        text,
			GeneratedAt:    s.now(),
		}); err != nil {
			return err
		}
		out, err = s.repomanager.Turns(tx).Create(ctx, &models.Turn{
			ConversationID: conv.ID,
			UserID:         userID,
			Role:           models.TurnRoleAssistant,
			Source:         models.SourceGoogleNLP,
			Kind:           models.ContentSentiment,
			Content:        result,
			GeneratedAt:    s.now(),
		})
		return err
	})
	if err != nil {
		return nil, common.ErrInternal
	}
	return out, nil
}
