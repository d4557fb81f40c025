package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commentstream/backend/attachment"
	"github.com/commentstream/backend/models"
)

type fakeBlobs struct {
	puts    int
	removed []string
}

func (f *fakeBlobs) Put(name string, data []byte) (string, error) {
	f.puts++
	return fmt.Sprintf("/static/attachments/blob-%d", f.puts), nil
}

func (f *fakeBlobs) Remove(url string) error {
	f.removed = append(f.removed, url)
	return nil
}

// callLog records write-path side effects in the order they happen.
type callLog struct {
	events []string
}

func (l *callLog) Clear(ctx context.Context)    { l.events = append(l.events, "clear") }
func (l *callLog) NewComment(c *models.Comment) { l.events = append(l.events, "notify") }

func newTestStore(t *testing.T) (*Comments, *fakeBlobs, *callLog) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Comment{}))
	require.NoError(t, db.Create(&models.User{ID: 1, Username: "ada"}).Error)

	blobs := &fakeBlobs{}
	log := &callLog{}
	return NewComments(db, blobs, log, log, nil), blobs, log
}

func textAttachment(data string) *attachment.Processed {
	return &attachment.Processed{
		Kind:  models.AttachmentKindText,
		Bytes: []byte(data),
		Name:  "notes.txt",
		Size:  int64(len(data)),
	}
}

func TestCreatePlainComment(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	c, err := s.Create(ctx, 1, "hello", nil, nil)
	require.NoError(t, err)
	assert.False(t, c.IsReply)
	assert.Nil(t, c.ParentCommentID)
	assert.Nil(t, c.AttachmentType)
	assert.Nil(t, c.AttachmentName)
	assert.Nil(t, c.AttachmentSize)
	assert.Equal(t, "ada", c.Sender.Username)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCreateReply(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	parent, err := s.Create(ctx, 1, "root", nil, nil)
	require.NoError(t, err)

	reply, err := s.Create(ctx, 1, "child", &parent.ID, nil)
	require.NoError(t, err)
	assert.True(t, reply.IsReply)
	require.NotNil(t, reply.ParentCommentID)
	assert.Equal(t, parent.ID, *reply.ParentCommentID)
}

func TestCreateParentNotFound(t *testing.T) {
	s, _, _ := newTestStore(t)
	missing := uint(42)

	_, err := s.Create(context.Background(), 1, "orphan", &missing, nil)
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestCreateWithAttachment(t *testing.T) {
	s, blobs, _ := newTestStore(t)

	c, err := s.Create(context.Background(), 1, "with file", nil, textAttachment("body"))
	require.NoError(t, err)
	assert.True(t, c.HasAttachment())
	assert.Equal(t, models.AttachmentKindText, *c.AttachmentType)
	assert.Equal(t, "notes.txt", *c.AttachmentName)
	assert.Equal(t, int64(4), *c.AttachmentSize)
	require.NotNil(t, c.AttachmentURL)
	assert.Equal(t, 1, blobs.puts)
}

func TestCreateOrdering(t *testing.T) {
	s, _, log := newTestStore(t)

	_, err := s.Create(context.Background(), 1, "hello", nil, nil)
	require.NoError(t, err)
	// Cache invalidation strictly precedes the notification.
	assert.Equal(t, []string{"clear", "notify"}, log.events)
}

func TestUpdateText(t *testing.T) {
	s, _, log := newTestStore(t)
	ctx := context.Background()

	c, err := s.Create(ctx, 1, "before", nil, textAttachment("x"))
	require.NoError(t, err)
	log.events = nil

	updated, err := s.UpdateText(ctx, c.ID, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Text)
	// Attachment fields survive a text update untouched.
	assert.True(t, updated.HasAttachment())
	assert.Equal(t, *c.AttachmentURL, *updated.AttachmentURL)
	// Updates clear the cache but publish nothing.
	assert.Equal(t, []string{"clear"}, log.events)
}

func TestUpdateTextNotFound(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.UpdateText(context.Background(), 999, "x")
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestIsReplyDerivationSurvivesUpdate(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	parent, err := s.Create(ctx, 1, "root", nil, nil)
	require.NoError(t, err)
	reply, err := s.Create(ctx, 1, "child", &parent.ID, nil)
	require.NoError(t, err)

	updated, err := s.UpdateText(ctx, reply.ID, "edited")
	require.NoError(t, err)
	assert.True(t, updated.IsReply)
	assert.Equal(t, updated.IsReply, updated.ParentCommentID != nil)
}

func TestListPagination(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := s.Create(ctx, 1, fmt.Sprintf("comment %d", i), nil, nil)
		require.NoError(t, err)
	}

	page, err := s.List(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 3, page.LastPage) // ceil(7/3)
	assert.Equal(t, 1, page.CurrentPage)
	// Newest first.
	assert.Equal(t, "comment 6", page.Items[0].Text)

	last, err := s.List(ctx, 3, 3)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.Equal(t, "comment 0", last.Items[0].Text)

	beyond, err := s.List(ctx, 4, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 3, beyond.LastPage)
}

func TestListInvalidPageSize(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.List(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
	_, err = s.List(context.Background(), 1, -5)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestListEmpty(t *testing.T) {
	s, _, _ := newTestStore(t)
	page, err := s.List(context.Background(), 1, 25)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Total)
	assert.Equal(t, 0, page.LastPage)
}

func TestDeleteCascades(t *testing.T) {
	s, blobs, _ := newTestStore(t)
	ctx := context.Background()

	root, err := s.Create(ctx, 1, "root", nil, textAttachment("r"))
	require.NoError(t, err)
	child, err := s.Create(ctx, 1, "child", &root.ID, nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, "grandchild", &child.ID, textAttachment("g"))
	require.NoError(t, err)
	bystander, err := s.Create(ctx, 1, "unrelated", nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, root.ID))

	page, err := s.List(ctx, 1, 25)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, bystander.ID, page.Items[0].ID)
	// Both attachment blobs of the deleted subtree are removed.
	assert.Len(t, blobs.removed, 2)
}

func TestDeleteNotFound(t *testing.T) {
	s, _, _ := newTestStore(t)
	err := s.Delete(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}
