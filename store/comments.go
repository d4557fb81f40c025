// Package store owns comment persistence and the write-path ordering
// guarantee: a comment is durably visible before the read cache is cleared,
// and the cache is cleared before subscribers hear about the comment.
package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/commentstream/backend/attachment"
	"github.com/commentstream/backend/models"
)

var (
	// ErrParentNotFound is returned when parent_comment_id references a
	// comment that does not exist.
	ErrParentNotFound = errors.New("parent comment not found")
	// ErrCommentNotFound is returned by update and delete paths.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrInvalidPageSize is returned for non-positive per_page values.
	ErrInvalidPageSize = errors.New("per_page must be a positive integer")
)

// Notifier receives every successfully created comment. Implementations must
// be fire-and-forget: they may log failures but cannot fail the create.
type Notifier interface {
	NewComment(c *models.Comment)
}

// Invalidator clears the read cache after writes. Implementations are best
// effort.
type Invalidator interface {
	Clear(ctx context.Context)
}

// Comments is the comment store. All collaborators are injected; any of
// blobs, cache, and notifier may be nil when the corresponding concern is
// not wired (tests, maintenance commands).
type Comments struct {
	db       *gorm.DB
	blobs    attachment.BlobStore
	cache    Invalidator
	notifier Notifier
	log      *zap.SugaredLogger
}

// NewComments builds a store around the given database handle.
func NewComments(db *gorm.DB, blobs attachment.BlobStore, cache Invalidator, notifier Notifier, log *zap.SugaredLogger) *Comments {
	return &Comments{db: db, blobs: blobs, cache: cache, notifier: notifier, log: log}
}

// Page is one page of the comment listing, newest first.
type Page struct {
	Items       []models.Comment `json:"data"`
	Total       int64            `json:"total"`
	PerPage     int              `json:"per_page"`
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
}

// Create persists a new comment. Text must already be sanitized and the
// attachment, when present, already processed. The attachment metadata trio
// is populated together or not at all.
func (s *Comments) Create(ctx context.Context, senderID uint, text string, parentID *uint, processed *attachment.Processed) (*models.Comment, error) {
	if parentID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", *parentID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrParentNotFound
		}
	}

	comment := models.Comment{
		Text:            text,
		SenderID:        senderID,
		ParentCommentID: parentID,
	}

	var blobURL string
	if processed != nil {
		url, err := s.blobs.Put(processed.Name, processed.Bytes)
		if err != nil {
			return nil, err
		}
		blobURL = url
		comment.AttachmentURL = &blobURL
		comment.AttachmentType = &processed.Kind
		comment.AttachmentName = &processed.Name
		comment.AttachmentSize = &processed.Size
	}

	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		if blobURL != "" {
			if rmErr := s.blobs.Remove(blobURL); rmErr != nil && s.log != nil {
				s.log.Warnf("orphan blob cleanup failed url=%s err=%v", blobURL, rmErr)
			}
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Sender").First(&comment, comment.ID).Error; err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	if s.notifier != nil {
		s.notifier.NewComment(&comment)
	}
	return &comment, nil
}

// UpdateText replaces the text of an existing comment. Attachment fields are
// immutable through this path.
func (s *Comments) UpdateText(ctx context.Context, id uint, text string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	comment.Text = text
	if err := s.db.WithContext(ctx).Model(&comment).Update("text", text).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Sender").First(&comment, id).Error; err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return &comment, nil
}

// Get loads a single comment with its sender.
func (s *Comments) Get(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("Sender").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// List returns one page of comments ordered newest first. A page past the
// end yields an empty item list, not an error.
func (s *Comments) List(ctx context.Context, page, perPage int) (*Page, error) {
	if perPage <= 0 {
		return nil, ErrInvalidPageSize
	}
	if page < 1 {
		page = 1
	}

	q := s.db.WithContext(ctx).Model(&models.Comment{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	items := []models.Comment{}
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &Page{
		Items:       items,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    int((total + int64(perPage) - 1) / int64(perPage)),
	}, nil
}

// Delete removes a comment and, transactionally, every descendant reply.
// Attachment blobs are removed best effort after the rows are gone.
func (s *Comments) Delete(ctx context.Context, id uint) error {
	var blobURLs []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := tx.First(&root, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}

		ids := []uint{root.ID}
		frontier := []uint{root.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_comment_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		var urls []string
		if err := tx.Model(&models.Comment{}).Where("id IN ? AND attachment_url IS NOT NULL", ids).Pluck("attachment_url", &urls).Error; err != nil {
			return err
		}
		blobURLs = urls

		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
	if err != nil {
		return err
	}

	if s.blobs != nil {
		for _, url := range blobURLs {
			if rmErr := s.blobs.Remove(url); rmErr != nil && s.log != nil {
				s.log.Warnf("blob removal failed url=%s err=%v", url, rmErr)
			}
		}
	}
	s.invalidate(ctx)
	return nil
}

func (s *Comments) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Clear(ctx)
	}
}
