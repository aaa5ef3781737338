package services

import (
	"context"
	"errors"
	"testing"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/aiclient"
	"github.com/avoronov/contenthub/internal/server/models"
)

func newSentimentService(t *testing.T, rm *fakeRepoManager, nlp *fakeCaller) *SentimentService {
	t.Helper()
	db, mock := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	mock.ExpectBegin()
	mock.ExpectCommit()
	s := NewSentimentService(db, rm, nlp, logging.NewNopLogger())
	s.now = tickingClock()
	return s
}

func TestAnalyze_PersistsFormattedResult(t *testing.T) {
	rm := &fakeRepoManager{c: newFakeConversationsRepo(), t: &fakeTurnsRepo{}}
	nlp := &fakeCaller{respond: func(path string, out any) {
		if resp, ok := out.(*aiclient.SentimentResponse); ok {
			resp.DocumentSentiment = aiclient.Sentiment{Score: 0.8, Magnitude: 1.9}
		}
	}}
	s := newSentimentService(t, rm, nlp)

	turn, err := s.Analyze(context.Background(), 1, "what a wonderful day")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	if nlp.lastPath != aiclient.AnalyzeSentimentPath {
		t.Errorf("wrong upstream path %q", nlp.lastPath)
	}
	req, ok := nlp.lastIn.(aiclient.SentimentRequest)
	if !ok {
		t.Fatalf("unexpected request type %T", nlp.lastIn)
	}
	if req.Document.Content != "what a wonderful day" || req.Document.Type != "PLAIN_TEXT" {
		t.Errorf("unexpected document: %+v", req.Document)
	}

	if turn.Content != "score: 0.8, magnitude: 1.9" {
		t.Errorf("unexpected formatted result %q", turn.Content)
	}
	if turn.Kind != models.ContentSentiment || turn.Source != models.SourceGoogleNLP {
		t.Errorf("unexpected turn classification: kind=%q source=%q", turn.Kind, turn.Source)
	}

	turns, _ := rm.t.ListByUserAndConversation(context.Background(), 1, turn.ConversationID)
	if len(turns) != 2 {
		t.Fatalf("want input and result persisted, got %d turns", len(turns))
	}
	if turns[0].Role != models.TurnRoleUser || turns[0].Content != "what a wonderful day" {
		t.Errorf("input turn wrong: %+v", turns[0])
	}
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	rm := &fakeRepoManager{c: newFakeConversationsRepo(), t: &fakeTurnsRepo{}}
	s := newSentimentService(t, rm, &fakeCaller{err: errBoom{}})

	_, err := s.Analyze(context.Background(), 1, "text")
	if !errors.Is(err, common.ErrAIService) {
		t.Fatalf("want ErrAIService, got %v", err)
	}
	if len(rm.t.stored) != 0 {
		t.Errorf("nothing may be persisted when the upstream fails")
	}
}

func TestFormatSentiment_IntegralValues(t *testing.T) {
	got := FormatSentiment(aiclient.Sentiment{Score: -1, Magnitude: 0})
	if got != "score: -1, magnitude: 0" {
		t.Errorf("unexpected format %q", got)
	}
}
