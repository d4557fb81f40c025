package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/commentstream/backend/attachment"
	"github.com/commentstream/backend/cache"
	"github.com/commentstream/backend/config"
	"github.com/commentstream/backend/middleware"
	"github.com/commentstream/backend/sanitize"
	"github.com/commentstream/backend/store"
	"github.com/commentstream/backend/utils"
	"github.com/commentstream/backend/validation"
)

// Raw uploads above this size are rejected before processing even starts.
const maxUploadBytes = 10 * 1024 * 1024

const (
	defaultPage    = 1
	defaultPerPage = 25
)

// CommentController handles the comment stream endpoints: create, list,
// update, delete.
type CommentController struct {
	store *store.Comments
	pages *cache.Pages
	pool  *attachment.Pool
}

// NewCommentController wires the controller to its collaborators.
func NewCommentController(s *store.Comments, pages *cache.Pages, pool *attachment.Pool) *CommentController {
	return &CommentController{store: s, pages: pages, pool: pool}
}

// CreateComment ingests a new comment from a multipart form: text, optional
// attachment file, optional parent_comment_id, and a captcha token when
// CAPTCHA verification is enabled.
func (cc *CommentController) CreateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cfg := config.Get()
	if cfg.CaptchaEnabled {
		passed, err := utils.VerifyCaptcha(ctx.Request.Context(), ctx.PostForm("captcha_token"), ctx.ClientIP())
		if err != nil {
			utils.Sugar.Warnf("captcha verification failed: %v", err)
		}
		if !passed {
			utils.Error(ctx, http.StatusBadRequest, 40040, "captcha verification failed")
			return
		}
	}

	text := ctx.PostForm("text")
	if strings.TrimSpace(text) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "text cannot be empty")
		return
	}

	var parentID *uint
	if raw := strings.TrimSpace(ctx.PostForm("parent_comment_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid parent_comment_id")
			return
		}
		v := uint(id)
		parentID = &v
	}

	// Validate everything before persisting anything, accumulating the full
	// violation list for the response.
	violations := sanitize.Sanitize(text)

	var processed *attachment.Processed
	if file, header, err := ctx.Request.FormFile("attachment"); err == nil {
		defer file.Close()

		data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if readErr != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "failed to read attachment")
			return
		}
		if len(data) > maxUploadBytes {
			violations = append(violations, validation.Violation{
				Code:    validation.CodeTooLarge,
				Message: "attachment exceeds the upload limit",
			})
		} else {
			p, procErr := cc.pool.Do(ctx.Request.Context(), attachment.Upload{
				Filename: header.Filename,
				Bytes:    data,
			})
			var verrs validation.Errors
			switch {
			case procErr == nil:
				processed = p
			case errors.As(procErr, &verrs):
				violations = append(violations, verrs...)
			case errors.Is(procErr, context.Canceled):
				// Client went away mid-upload; nothing gets persisted.
				ctx.Abort()
				return
			default:
				utils.Sugar.Errorf("attachment processing failed: %v", procErr)
				utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to process attachment")
				return
			}
		}
	}

	if len(violations) > 0 {
		utils.FailValidation(ctx, violations)
		return
	}

	comment, err := cc.store.Create(ctx.Request.Context(), userID, text, parentID, processed)
	if err != nil {
		if errors.Is(err, store.ErrParentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "parent comment not found")
			return
		}
		utils.Sugar.Errorf("create comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create comment")
		return
	}

	utils.Created(ctx, gin.H{"comment": comment})
}

// ListComments returns one page of the stream, newest first, served from the
// page cache when possible.
func (cc *CommentController) ListComments(ctx *gin.Context) {
	page := defaultPage
	if raw := ctx.Query("page"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p >= 1 {
			page = p
		}
	}

	perPage := defaultPerPage
	if raw := ctx.Query("per_page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 {
			utils.FailValidation(ctx, validation.Errors{{
				Code:    validation.CodeInvalidPageSize,
				Value:   raw,
				Message: "per_page must be a positive integer",
			}})
			return
		}
		perPage = p
	}

	if b, ok := cc.pages.Get(ctx.Request.Context(), page, perPage); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	result, err := cc.store.List(ctx.Request.Context(), page, perPage)
	if err != nil {
		utils.Sugar.Errorf("list comments failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list comments")
		return
	}

	payload := gin.H{
		"data": result.Items,
		"meta": gin.H{
			"total":        result.Total,
			"per_page":     result.PerPage,
			"current_page": result.CurrentPage,
			"last_page":    result.LastPage,
		},
	}

	// Cache the full response envelope so hits can be served byte for byte.
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	if b, mErr := json.Marshal(wrapper); mErr == nil {
		cc.pages.Set(ctx.Request.Context(), page, perPage, b)
	}

	utils.Success(ctx, payload)
}

// UpdateComment replaces the text of an existing comment. Only the sender
// may edit; attachments are immutable through this path.
func (cc *CommentController) UpdateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid comment id")
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	if violations := sanitize.Sanitize(req.Text); len(violations) > 0 {
		utils.FailValidation(ctx, violations)
		return
	}

	existing, err := cc.store.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load comment")
		return
	}
	if existing.SenderID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40320, "you can only edit your own comment")
		return
	}

	comment, err := cc.store.UpdateText(ctx.Request.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "comment not found")
			return
		}
		utils.Sugar.Errorf("update comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to update comment")
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment and all of its replies.
func (cc *CommentController) DeleteComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid comment id")
		return
	}

	existing, err := cc.store.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load comment")
		return
	}
	if existing.SenderID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40321, "you can only delete your own comment")
		return
	}

	if err := cc.store.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "comment not found")
			return
		}
		utils.Sugar.Errorf("delete comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to delete comment")
		return
	}

	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	return uint(id), err
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	if uname == "" {
		return false
	}
	for _, u := range config.Get().AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}
