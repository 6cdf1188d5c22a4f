package server

import (
	"errors"

	"myfeed/internal/models"
	"myfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/posts?page=&following=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	filter := service.FeedFilter{}
	if c.QueryBool("following") {
		username, ok := s.optionalUsername(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Sign in to view your following feed"))
		}
		filter.FollowedBy = username
	}

	items, err := s.feed.ListContent(c.UserContext(), filter, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetUserPosts handles GET /api/posts/user/:username
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	filter := service.FeedFilter{Author: c.Params("username")}
	items, err := s.feed.ListContent(c.UserContext(), filter, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetPost handles GET /api/posts/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	content, err := s.getContentOfKind(c, c.Params("postId"), models.ContentKindPost)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(content)
}

// GetComment handles GET /api/comments/:commentId
func (s *Server) GetComment(c *fiber.Ctx) error {
	content, err := s.getContentOfKind(c, c.Params("commentId"), models.ContentKindComment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(content)
}

// GetPostMedia handles GET /api/posts/:postId/media
func (s *Server) GetPostMedia(c *fiber.Ctx) error {
	if _, err := s.getContentOfKind(c, c.Params("postId"), models.ContentKindPost); err != nil {
		return respondError(c, err)
	}
	media, err := s.authoring.ListMedia(c.UserContext(), c.Params("postId"))
	if err != nil {
		return respondError(c, err)
	}
	if media == nil {
		media = []models.Media{}
	}
	return c.JSON(media)
}

// CreatePost handles POST /api/posts. Accepts multipart (with attachments)
// or plain JSON.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	return s.createContent(c, models.ContentKindPost, nil, nil)
}

// CreateComment handles POST /api/posts/:postId/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID := c.Params("postId")
	if _, err := s.getContentOfKind(c, postID, models.ContentKindPost); err != nil {
		return respondError(c, err)
	}
	return s.createContent(c, models.ContentKindComment, &postID, nil)
}

// CreateReply handles POST /api/comments/:commentId/replies
func (s *Server) CreateReply(c *fiber.Ctx) error {
	parentID := c.Params("commentId")
	parent, err := s.getContentOfKind(c, parentID, models.ContentKindComment)
	if err != nil {
		return respondError(c, err)
	}
	return s.createContent(c, models.ContentKindComment, parent.PostID, &parentID)
}

// createContent parses the request and publishes a post, comment or reply.
// A 201 with per-attachment failures listed is a partial success, not an
// error.
func (s *Server) createContent(c *fiber.Ctx, kind string, postID, parentID *string) error {
	in := service.CreateContentInput{
		Kind:     kind,
		Author:   currentUsername(c),
		PostID:   postID,
		ParentID: parentID,
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		if v := formValue(form, "body"); v != nil {
			in.Body = *v
		}
		if v := formValue(form, "gif_url"); v != nil {
			in.GifURL = *v
		}
		attachments, closeAll, err := formAttachments(form)
		if err != nil {
			return respondError(c, err)
		}
		defer closeAll()
		in.Attachments = attachments
	} else {
		var req struct {
			Body   string `json:"body"`
			GifURL string `json:"gif_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Body = req.Body
		in.GifURL = req.GifURL
	}

	result, err := s.authoring.CreateContent(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// UpdatePost handles PUT /api/posts/:postId
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	return s.editContent(c, c.Params("postId"), models.ContentKindPost)
}

// UpdateComment handles PUT /api/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	return s.editContent(c, c.Params("commentId"), models.ContentKindComment)
}

// editContent revises text, gif reference and/or the attachment. Fields that
// are absent from the request stay untouched. Editing an id that no longer
// exists succeeds with no effect.
func (s *Server) editContent(c *fiber.Ctx, id, kind string) error {
	existing, err := s.authoring.GetContent(c.UserContext(), id)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return respondError(c, err)
	}
	if existing.Kind != kind {
		return respondError(c, models.NewNotFoundError("Content", id))
	}

	in := service.EditContentInput{
		ID:     id,
		Editor: currentUsername(c),
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		in.Body = formValue(form, "body")
		in.GifURL = formValue(form, "gif_url")
		if files := form.File["attachment"]; len(files) > 0 {
			att, closer, err := formAttachment(files[0])
			if err != nil {
				return respondError(c, err)
			}
			if closer != nil {
				defer closer.Close()
			}
			in.Replacement = att
		}
	} else {
		var req struct {
			Body   *string `json:"body"`
			GifURL *string `json:"gif_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Body = req.Body
		in.GifURL = req.GifURL
	}

	content, err := s.authoring.EditContent(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	if content == nil {
		// The row vanished between the read and the edit.
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(content)
}

// DeletePost handles DELETE /api/posts/:postId
func (s *Server) DeletePost(c *fiber.Ctx) error {
	return s.deleteContent(c, c.Params("postId"), models.ContentKindPost)
}

// DeleteComment handles DELETE /api/comments/:commentId?onDelete=
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	return s.deleteContent(c, c.Params("commentId"), models.ContentKindComment)
}

func (s *Server) deleteContent(c *fiber.Ctx, id, kind string) error {
	if _, err := s.getContentOfKind(c, id, kind); err != nil {
		return respondError(c, err)
	}

	result, err := s.authoring.DeleteContent(c.UserContext(), service.DeleteContentInput{
		ID:       id,
		Actor:    currentUsername(c),
		OnDelete: service.ReplyPolicy(c.Query("onDelete", string(service.ReplyCascade))),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetComments handles GET /api/posts/:postId/comments?page=
func (s *Server) GetComments(c *fiber.Ctx) error {
	if _, err := s.getContentOfKind(c, c.Params("postId"), models.ContentKindPost); err != nil {
		return respondError(c, err)
	}
	items, err := s.feed.ListContent(c.UserContext(), service.FeedFilter{PostID: c.Params("postId")}, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetReplies handles GET /api/comments/:commentId/replies?page=
func (s *Server) GetReplies(c *fiber.Ctx) error {
	if _, err := s.getContentOfKind(c, c.Params("commentId"), models.ContentKindComment); err != nil {
		return respondError(c, err)
	}
	items, err := s.feed.ListContent(c.UserContext(), service.FeedFilter{RepliesTo: c.Params("commentId")}, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// getContentOfKind fetches one item and hides kind mismatches behind a 404,
// so a comment id can never be addressed through the post routes.
func (s *Server) getContentOfKind(c *fiber.Ctx, id, kind string) (*models.Content, error) {
	content, err := s.authoring.GetContent(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if content.Kind != kind {
		return nil, models.NewNotFoundError("Content", id)
	}
	return content, nil
}
