package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/auth"
	"github.com/avoronov/contenthub/internal/server/models"
	"github.com/avoronov/contenthub/internal/server/services"
)

// -------- test fakes --------

type fakeResolver struct {
	user *models.User
	err  error
}

func (f *fakeResolver) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeSessions struct {
	loginOut *services.TokenPair
	loginErr error

	refreshOut *services.TokenPair
	refreshErr error
}

func (f *fakeSessions) Login(ctx context.Context, username, password string) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginOut, nil
}

func (f *fakeSessions) Refresh(ctx context.Context, token string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshOut, nil
}

type fakeRegistrar struct {
	out *models.User
	err error
}

func (f *fakeRegistrar) Register(ctx context.Context, username, password string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeContent struct {
	err error

	conv *models.Conversation
	turn *models.Turn

	lastUserID int64
	lastConvID int64
	lastText   string
}

func (f *fakeContent) StartConversation(ctx context.Context, userID int64) (*models.Conversation, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.conv, nil
}

func (f *fakeContent) ContinueConversation(ctx context.Context, userID, conversationID int64, text string) (*models.Turn, error) {
	f.lastUserID, f.lastConvID, f.lastText = userID, conversationID, text
	if f.err != nil {
		return nil, f.err
	}
	return f.turn, nil
}

func (f *fakeContent) GenerateText(ctx context.Context, userID int64, prompt string) (*models.Turn, error) {
	f.lastUserID, f.lastText = userID, prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.turn, nil
}

func (f *fakeContent) SummarizeText(ctx context.Context, userID int64, text string) (*models.Turn, error) {
	return f.GenerateText(ctx, userID, text)
}

func (f *fakeContent) ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.conv == nil {
		return nil, nil
	}
	return []*models.Conversation{f.conv}, nil
}

func (f *fakeContent) ListTurns(ctx context.Context, userID, conversationID int64) ([]*models.Turn, error) {
	f.lastUserID, f.lastConvID = userID, conversationID
	if f.err != nil {
		return nil, f.err
	}
	if f.turn == nil {
		return nil, nil
	}
	return []*models.Turn{f.turn}, nil
}

func (f *fakeContent) DeleteConversation(ctx context.Context, userID, conversationID int64) error {
	f.lastUserID, f.lastConvID = userID, conversationID
	return f.err
}

type fakeSentiment struct {
	turn *models.Turn
	err  error
}

func (f *fakeSentiment) Analyze(ctx context.Context, userID int64, text string) (*models.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.turn, nil
}

type fakeImages struct {
	img *models.Image
	url string
	err error
}

func (f *fakeImages) Generate(ctx context.Context, userID int64, prompt string) (*models.Image, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.img, f.url, nil
}

func (f *fakeImages) PresignUpload(ctx context.Context, userID int64, prompt string) (*models.Image, string, error) {
	return f.Generate(ctx, userID, prompt)
}

func (f *fakeImages) PresignDownload(ctx context.Context, userID, imageID int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func (f *fakeImages) ListImages(ctx context.Context, userID int64) ([]*models.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.img == nil {
		return nil, nil
	}
	return []*models.Image{f.img}, nil
}

type handlerDeps struct {
	resolver  *fakeResolver
	sessions  *fakeSessions
	users     *fakeRegistrar
	content   *fakeContent
	sentiment *fakeSentiment
	images    *fakeImages
}

func defaultDeps() *handlerDeps {
	return &handlerDeps{
		resolver: &fakeResolver{user: &models.User{
			ID: 1, Username: "alice", Enabled: true, Role: models.RoleUser,
		}},
		sessions:  &fakeSessions{},
		users:     &fakeRegistrar{},
		content:   &fakeContent{},
		sentiment: &fakeSentiment{},
		images:    &fakeImages{},
	}
}

func testCodec(t *testing.T) *auth.Codec {
	t.Helper()
	codec, err := auth.NewCodec("!unit-test-signing-key-material-0123456789abcdefghij", 30*time.Second)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	return codec
}

func newTestHandler(t *testing.T, deps *handlerDeps) http.Handler {
	t.Helper()
	return NewHandler(
		testCodec(t),
		deps.resolver,
		deps.sessions,
		deps.users,
		deps.content,
		deps.sentiment,
		deps.images,
		logging.NewNopLogger(),
	)
}

// bearerFor mints a valid access token for the default test user.
func bearerFor(t *testing.T, subject string) string {
	t.Helper()
	tok, err := testCodec(t).Issue(subject, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return "Bearer " + tok
}
