package services

import (
	"context"
	"database/sql"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/dbx"
	"github.com/avoronov/contenthub/internal/server/models"
	"github.com/avoronov/contenthub/internal/server/repositories/conversations"
	"github.com/avoronov/contenthub/internal/server/repositories/images"
	"github.com/avoronov/contenthub/internal/server/repositories/turns"
	"github.com/avoronov/contenthub/internal/server/repositories/users"
)

// -------- test fakes --------

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	out := *u
	out.ID = 1
	return &out, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut == nil {
		return nil, common.ErrNotFound
	}
	return f.getOut, nil
}

type fakeConversationsRepo struct {
	nextID int64
	byID   map[int64]*models.Conversation

	createErr error
	deleteErr error
	deleted   []int64
}

func newFakeConversationsRepo() *fakeConversationsRepo {
	return &fakeConversationsRepo{byID: map[int64]*models.Conversation{}}
}

func (f *fakeConversationsRepo) Create(ctx context.Context, c *models.Conversation) (*models.Conversation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	out := *c
	out.ID = f.nextID
	out.CreatedAt = time.Now()
	f.byID[out.ID] = &out
	return &out, nil
}

func (f *fakeConversationsRepo) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (f *fakeConversationsRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeConversationsRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeTurnsRepo struct {
	nextID    int64
	stored    []*models.Turn
	createErr error
	listErr   error
}

func (f *fakeTurnsRepo) Create(ctx context.Context, tn *models.Turn) (*models.Turn, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	out := *tn
	out.ID = f.nextID
	f.stored = append(f.stored, &out)
	return &out, nil
}

// ListByUserAndConversation sorts on read, like the SQL ORDER BY does, so
// insertion order deliberately does not matter.
func (f *fakeTurnsRepo) ListByUserAndConversation(ctx context.Context, userID, conversationID int64) ([]*models.Turn, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Turn
	for _, tn := range f.stored {
		if tn.UserID == userID && tn.ConversationID == conversationID {
			out = append(out, tn)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GeneratedAt.Before(out[j].GeneratedAt) })
	return out, nil
}

func (f *fakeTurnsRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Turn, error) {
	var out []*models.Turn
	for _, tn := range f.stored {
		if tn.UserID == userID {
			out = append(out, tn)
		}
	}
	return out, nil
}

type fakeImagesRepo struct {
	nextID    int64
	stored    []*models.Image
	createErr error
}

func (f *fakeImagesRepo) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	out := *img
	out.ID = f.nextID
	f.stored = append(f.stored, &out)
	return &out, nil
}

func (f *fakeImagesRepo) GetByID(ctx context.Context, id int64) (*models.Image, error) {
	for _, img := range f.stored {
		if img.ID == id {
			return img, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeImagesRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Image, error) {
	var out []*models.Image
	for _, img := range f.stored {
		if img.UserID == userID {
			out = append(out, img)
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeConversationsRepo
	t *fakeTurnsRepo
	i *fakeImagesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository          { return m.u }
func (m *fakeRepoManager) Conversations(db dbx.DBTX) conversations.Repository {
	return m.c
}
func (m *fakeRepoManager) Turns(db dbx.DBTX) turns.Repository   { return m.t }
func (m *fakeRepoManager) Images(db dbx.DBTX) images.Repository { return m.i }

// fakeCaller records the last request and answers with canned responses
// keyed by path.
type fakeCaller struct {
	lastPath string
	lastIn   any
	err      error
	respond  func(path string, out any)
}

func (f *fakeCaller) Post(ctx context.Context, path string, in, out any) error {
	f.lastPath = path
	f.lastIn = in
	if f.err != nil {
		return f.err
	}
	if f.respond != nil {
		f.respond(path, out)
	}
	return nil
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// tickingClock hands out strictly increasing timestamps.
func tickingClock() func() time.Time {
	var n int64
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&n, 1)) * time.Second)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
