package server

import (
	"myfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/posts/:postId/like. Liking twice is a no-op.
func (s *Server) LikePost(c *fiber.Ctx) error {
	if err := s.social.LikePost(c.UserContext(), c.Params("postId"), currentUsername(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": true})
}

// UnlikePost handles DELETE /api/posts/:postId/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	if err := s.social.UnlikePost(c.UserContext(), c.Params("postId"), currentUsername(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": false})
}

// GetPostLikeStatus handles GET /api/posts/:postId/like
func (s *Server) GetPostLikeStatus(c *fiber.Ctx) error {
	liked, err := s.social.PostLikeStatus(c.UserContext(), c.Params("postId"), currentUsername(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// LikeComment handles POST /api/comments/:commentId/like
func (s *Server) LikeComment(c *fiber.Ctx) error {
	if err := s.social.LikeComment(c.UserContext(), c.Params("commentId"), currentUsername(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": true})
}

// UnlikeComment handles DELETE /api/comments/:commentId/like
func (s *Server) UnlikeComment(c *fiber.Ctx) error {
	if err := s.social.UnlikeComment(c.UserContext(), c.Params("commentId"), currentUsername(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": false})
}

// GetCommentLikeStatus handles GET /api/comments/:commentId/like
func (s *Server) GetCommentLikeStatus(c *fiber.Ctx) error {
	liked, err := s.social.CommentLikeStatus(c.UserContext(), c.Params("commentId"), currentUsername(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// GetPostLikers handles GET /api/posts/:postId/likes
func (s *Server) GetPostLikers(c *fiber.Ctx) error {
	if _, err := s.getContentOfKind(c, c.Params("postId"), models.ContentKindPost); err != nil {
		return respondError(c, err)
	}
	users, err := s.social.UsersWhoLiked(c.UserContext(), c.Params("postId"))
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []models.PublicProfile{}
	}
	return c.JSON(users)
}

// FollowUser handles POST /api/users/:username/follow. Following twice is a
// no-op; following yourself is rejected.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	if err := s.social.Follow(c.UserContext(), c.Params("username"), currentUsername(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": true})
}

// UnfollowUser handles DELETE /api/users/:username/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	if err := s.social.Unfollow(c.UserContext(), c.Params("username"), currentUsername(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": false})
}

// GetFollowStatus handles GET /api/users/:username/follow
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	following, err := s.social.FollowStatus(c.UserContext(), c.Params("username"), currentUsername(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// GetFollowers handles GET /api/users/:username/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	users, err := s.social.Followers(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []models.PublicProfile{}
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:username/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.social.Following(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []models.PublicProfile{}
	}
	return c.JSON(users)
}

// GetLikesReceived handles GET /api/users/:username/likes and totals likes
// across everything the user authored.
func (s *Server) GetLikesReceived(c *fiber.Ctx) error {
	total, err := s.account.LikesReceived(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"likes": total})
}
