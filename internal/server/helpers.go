package server

import (
	"io"
	"mime/multipart"
	"strings"

	"myfeed/internal/models"
	"myfeed/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// maxAttachmentBytes bounds buffered attachment reads. Videos stream through
// and are not subject to this cap.
const maxAttachmentBytes = 25 << 20

// respondError maps the error's code onto its HTTP status and writes the
// standard error body.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// currentUsername returns the authenticated username. Only call it behind
// AuthRequired.
func currentUsername(c *fiber.Ctx) string {
	username, _ := c.Locals("username").(string)
	return username
}

// optionalUsername resolves the caller's username from a bearer token when
// one is present, for public routes that personalize when authenticated.
func (s *Server) optionalUsername(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithAudience(s.config.JWTAudience),
	)
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}

// parsePage reads the ?page= query parameter. Pages are 1-indexed; page 0,
// or omitting the parameter, requests the full ordered set.
func parsePage(c *fiber.Ctx) int {
	return c.QueryInt("page", 0)
}

// formAttachments converts the "attachments" multipart files into service
// attachments. Video files stay open and stream to the store; the returned
// closer releases them and must run after the service call completed.
func formAttachments(form *multipart.Form) ([]service.Attachment, func(), error) {
	files := form.File["attachments"]
	if len(files) == 0 {
		return nil, func() {}, nil
	}

	var closers []io.Closer
	closeAll := func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}

	attachments := make([]service.Attachment, 0, len(files))
	for _, fh := range files {
		att, closer, err := formAttachment(fh)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		attachments = append(attachments, *att)
	}
	return attachments, closeAll, nil
}

// formAttachment opens one multipart file. Videos are returned as a stream,
// everything else is buffered.
func formAttachment(fh *multipart.FileHeader) (*service.Attachment, io.Closer, error) {
	contentType := fh.Header.Get("Content-Type")

	file, err := fh.Open()
	if err != nil {
		return nil, nil, models.NewValidationError("Could not read attachment " + fh.Filename)
	}

	if strings.HasPrefix(contentType, "video/") {
		return &service.Attachment{
			Filename:    fh.Filename,
			ContentType: contentType,
			Reader:      file,
			Size:        fh.Size,
		}, file, nil
	}

	defer file.Close()
	if fh.Size > maxAttachmentBytes {
		return nil, nil, models.NewValidationError("Attachment too large: " + fh.Filename)
	}
	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
	if err != nil {
		return nil, nil, models.NewValidationError("Could not read attachment " + fh.Filename)
	}
	return &service.Attachment{
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil, nil
}

// bufferedAttachment reads one multipart file fully into memory. Profile
// image processing needs the whole payload.
func bufferedAttachment(fh *multipart.FileHeader) (*service.Attachment, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Could not read attachment " + fh.Filename)
	}
	defer file.Close()

	if fh.Size > maxAttachmentBytes {
		return nil, models.NewValidationError("Attachment too large: " + fh.Filename)
	}
	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
	if err != nil {
		return nil, models.NewValidationError("Could not read attachment " + fh.Filename)
	}
	return &service.Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// formValue returns a pointer to the first value of a multipart field, nil
// when the field was not sent at all. Distinguishes "clear this field" from
// "leave it alone".
func formValue(form *multipart.Form, name string) *string {
	values, ok := form.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
