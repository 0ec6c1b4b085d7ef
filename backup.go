package folio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// RestoreResult reports the outcome of a restore for display in the admin UI.
type RestoreResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RestoredCount int    `json:"restoredCount"`
}

// BackupFileName is the conventional name of a backup taken at t.
func BackupFileName(t time.Time) string {
	return fmt.Sprintf("blog-backup-%s.json", t.UTC().Format("2006-01-02"))
}

// ExportAll returns the whole collection for backup. It is ListAll under a
// name that states intent.
func (r *Repository) ExportAll(ctx context.Context) ([]BlogPost, error) {
	return r.ListAll(ctx)
}

// WriteBackup writes the whole collection to w in the store's own document
// format, so a backup can be restored or dropped in place of the data file.
func (r *Repository) WriteBackup(ctx context.Context, w io.Writer) (int, error) {
	posts, err := r.ExportAll(ctx)
	if err != nil {
		return 0, err
	}
	data, err := encodePosts(posts)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(data); err != nil {
		return 0, err
	}
	return len(posts), nil
}

// Restore replaces the entire collection with the posts in document. The
// document is validated first; when it is malformed nothing is written, the
// result carries Success false and the error wraps ErrValidation.
//
// This discards every post not present in the document. Callers must confirm
// with the user before invoking it.
func (r *Repository) Restore(ctx context.Context, document []byte) (res RestoreResult, err error) {
	defer func() { recordMutation("restore", err) }()

	posts, err := decodeBackup(document)
	if err != nil {
		msg := err.Error()
		var ve *ValidationError
		if errors.As(err, &ve) {
			msg = "Invalid backup file: " + joinProblems(ve.Problems, 5)
		}
		return RestoreResult{Success: false, Message: msg}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.WriteAll(ctx, posts); err != nil {
		r.log.Error().Err(err).Int("count", len(posts)).Msg("restore backup")
		return RestoreResult{Success: false, Message: "Failed to write restored posts."}, err
	}
	r.log.Warn().Int("count", len(posts)).Msg("collection replaced from backup")
	r.invalidate()
	return RestoreResult{
		Success:       true,
		Message:       fmt.Sprintf("Restored %d posts.", len(posts)),
		RestoredCount: len(posts),
	}, nil
}

func joinProblems(problems []string, max int) string {
	if len(problems) <= max {
		return strings.Join(problems, "; ")
	}
	return fmt.Sprintf("%s (and %d more)", strings.Join(problems[:max], "; "), len(problems)-max)
}
