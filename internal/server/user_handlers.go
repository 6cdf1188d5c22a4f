package server

import (
	"myfeed/internal/models"
	"myfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAllUsers handles GET /api/users?limit=&offset=
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	found, err := s.account.ListUsers(c.UserContext(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}

	profiles := make([]models.PublicProfile, 0, len(found))
	for _, u := range found {
		profiles = append(profiles, u.Public())
	}
	return c.JSON(profiles)
}

// SearchUsers handles GET /api/users/search?q=
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	found, err := s.account.SearchUsers(c.UserContext(), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}

	profiles := make([]models.PublicProfile, 0, len(found))
	for _, u := range found {
		profiles = append(profiles, u.Public())
	}
	return c.JSON(profiles)
}

// GetUserProfile handles GET /api/users/:username
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.account.GetProfile(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	// The full profile minus credentials; email stays private to the owner.
	user.Email = ""
	return c.JSON(user)
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.account.GetProfile(c.UserContext(), currentUsername(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. Multipart with optional text
// fields plus optional avatar and profile_image uploads; absent fields stay
// untouched.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	in := service.UpdateProfileInput{Username: currentUsername(c)}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		in.Name = formValue(form, "name")
		in.Bio = formValue(form, "bio")
		in.Location = formValue(form, "location")
		in.XURL = formValue(form, "x_url")
		in.InstagramURL = formValue(form, "instagram_url")
		in.YoutubeURL = formValue(form, "youtube_url")

		if files := form.File["avatar"]; len(files) > 0 {
			att, err := bufferedAttachment(files[0])
			if err != nil {
				return respondError(c, err)
			}
			in.Avatar = att
		}
		if files := form.File["profile_image"]; len(files) > 0 {
			att, err := bufferedAttachment(files[0])
			if err != nil {
				return respondError(c, err)
			}
			in.ProfileImage = att
		}
	} else {
		var req struct {
			Name         *string `json:"name"`
			Bio          *string `json:"bio"`
			Location     *string `json:"location"`
			XURL         *string `json:"x_url"`
			InstagramURL *string `json:"instagram_url"`
			YoutubeURL   *string `json:"youtube_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Name = req.Name
		in.Bio = req.Bio
		in.Location = req.Location
		in.XURL = req.XURL
		in.InstagramURL = req.InstagramURL
		in.YoutubeURL = req.YoutubeURL
	}

	user, err := s.account.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
