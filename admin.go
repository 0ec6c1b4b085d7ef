package folio

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxBackupSize = 20 << 20 // 20MB

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	user := c.FormValue("username")
	pass := c.FormValue("password")
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.Config.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1
	if userOK && passOK {
		if err := setAdminSession(c); err != nil {
			return err
		}
		a.Log.Info().Str("ip", ip).Msg("admin login")
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Log.Warn().Str("ip", ip).Msg("failed admin login")
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// handleAdminEditor renders the post form, empty for a new post.
func (a *App) handleAdminEditor(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return Render(c, a.Views.AdminEditor(BlogPost{Tags: []string{}, Author: a.Config.Author}, CsrfToken(c)))
	}
	post, err := a.Repo.FindByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	return Render(c, a.Views.AdminEditor(post, CsrfToken(c)))
}

// handleAdminSave creates a post when the form has no id and updates the
// existing post otherwise.
func (a *App) handleAdminSave(c echo.Context) error {
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.FormValue("id"))
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	fields := PostDraft{
		Title:            title,
		Slug:             slug,
		Content:          c.FormValue("content"),
		Excerpt:          strings.TrimSpace(c.FormValue("excerpt")),
		Tags:             SplitTags(c.FormValue("tags")),
		Author:           strings.TrimSpace(c.FormValue("author")),
		Published:        c.FormValue("published") != "",
		FeaturedImage:    strings.TrimSpace(c.FormValue("featuredImage")),
		FeaturedImageAlt: strings.TrimSpace(c.FormValue("featuredImageAlt")),
		ContentTag:       ContentTag(c.FormValue("contentTag")),
	}

	if id == "" {
		post, err := a.Repo.Create(ctx, fields)
		if err != nil {
			return a.adminMutationError(c, err)
		}
		return a.redirectDashboard(c, fmt.Sprintf("Created %q.", post.Title))
	}

	existing, err := a.Repo.FindByID(ctx, id)
	if err != nil {
		return a.adminMutationError(c, err)
	}
	if slug == "" {
		slug = existing.Slug
	}
	post, err := a.Repo.Update(ctx, BlogPost{
		ID:               id,
		Title:            fields.Title,
		Slug:             slug,
		Content:          fields.Content,
		Excerpt:          fields.Excerpt,
		Tags:             fields.Tags,
		Author:           fields.Author,
		Published:        fields.Published,
		FeaturedImage:    fields.FeaturedImage,
		FeaturedImageAlt: fields.FeaturedImageAlt,
		ContentTag:       fields.ContentTag,
	})
	if err != nil {
		return a.adminMutationError(c, err)
	}
	return a.redirectDashboard(c, fmt.Sprintf("Saved %q.", post.Title))
}

func (a *App) handleAdminPublish(c echo.Context) error {
	post, err := a.Repo.TogglePublished(c.Request().Context(), c.Param("id"))
	if err != nil {
		return a.adminMutationError(c, err)
	}
	state := "unpublished"
	if post.Published {
		state = "published"
	}
	return a.renderAdminDashboard(c, fmt.Sprintf("%q %s.", post.Title, state))
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if err := a.Repo.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return a.adminMutationError(c, err)
	}
	return a.renderAdminDashboard(c, "deleted")
}

// handleBackupDownload streams the whole collection as a JSON attachment.
func (a *App) handleBackupDownload(c echo.Context) error {
	name := BackupFileName(timeNow())
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Response().WriteHeader(http.StatusOK)
	n, err := a.Repo.WriteBackup(c.Request().Context(), c.Response())
	if err != nil {
		return err
	}
	a.Log.Info().Int("posts", n).Str("file", name).Msg("backup downloaded")
	return nil
}

func (a *App) handleBackupRemote(c echo.Context) error {
	if a.uploader == nil {
		return a.redirectDashboard(c, "Off-site backups are not configured.")
	}
	key, n, err := PushBackup(c.Request().Context(), a.Repo, a.uploader, timeNow())
	if err != nil {
		a.Log.Error().Err(err).Msg("push backup")
		return a.redirectDashboard(c, "Backup upload failed.")
	}
	a.Log.Info().Int("posts", n).Str("key", key).Msg("backup uploaded")
	return a.redirectDashboard(c, fmt.Sprintf("Uploaded %d posts to %s.", n, key))
}

// handleRestore replaces the collection with an uploaded backup. The form
// must carry confirm=yes since every existing post is discarded.
func (a *App) handleRestore(c echo.Context) error {
	if c.FormValue("confirm") != "yes" {
		return a.redirectDashboard(c, "Restore cancelled: confirmation required.")
	}
	file, err := c.FormFile("backup")
	if err != nil {
		return a.redirectDashboard(c, "No backup file provided.")
	}
	if file.Size > maxBackupSize {
		return a.redirectDashboard(c, "Backup file too large (max 20MB).")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	doc, err := io.ReadAll(io.LimitReader(src, maxBackupSize+1))
	if err != nil {
		return err
	}

	res, err := a.Repo.Restore(c.Request().Context(), doc)
	if err != nil && !errors.Is(err, ErrValidation) {
		return err
	}
	return a.redirectDashboard(c, res.Message)
}

// adminMutationError turns caller mistakes into dashboard messages and lets
// storage failures reach the error handler.
func (a *App) adminMutationError(c echo.Context, err error) error {
	if IsUserError(err) {
		return a.redirectDashboard(c, userMessage(err))
	}
	return err
}

func userMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "Invalid post: " + joinProblems(ve.Problems, 3)
	case errors.Is(err, ErrDuplicateSlug):
		return "A post with this slug already exists."
	case errors.Is(err, ErrInvalidSlug):
		return "Slug is required. Add a title or slug."
	case errors.Is(err, ErrNotFound):
		return "Post not found."
	}
	return err.Error()
}

func (a *App) redirectDashboard(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Repo.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}
