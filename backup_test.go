package folio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestExportRestoreRoundTrip(t *testing.T) {
	src, _, _ := newTestRepo(t)
	mustCreate(t, src, PostDraft{Title: "One", Tags: []string{"go"}, Published: true, ContentTag: ContentHumanWritten})
	mustCreate(t, src, PostDraft{Title: "Two", Content: "draft body", Excerpt: "e", Author: "Ada", FeaturedImage: "/public/uploads/two.jpg", FeaturedImageAlt: "two"})

	var buf bytes.Buffer
	n, err := src.WriteBackup(context.Background(), &buf)
	if err != nil {
		t.Fatalf("WriteBackup: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported %d posts, want 2", n)
	}

	dst, inv, _ := newTestRepo(t)
	mustCreate(t, dst, PostDraft{Title: "Will be replaced"})
	res, err := dst.Restore(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !res.Success || res.RestoredCount != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if inv.count() != 2 {
		t.Errorf("invalidator called %d times, want 2", inv.count())
	}
	if last := inv.calls[len(inv.calls)-1]; len(last) != 0 {
		t.Errorf("restore should invalidate everything, got slugs %v", last)
	}

	want, _ := src.ExportAll(context.Background())
	got, _ := dst.ExportAll(context.Background())
	if len(got) != len(want) {
		t.Fatalf("got %d posts, want %d", len(got), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("post %d differs:\ngot  %+v\nwant %+v", i, got[i], want[i])
		}
	}
}

func TestRestoreEmptyArray(t *testing.T) {
	r, _, _ := newTestRepo(t)
	mustCreate(t, r, PostDraft{Title: "gone"})
	res, err := r.Restore(context.Background(), []byte("[]"))
	if err != nil || !res.Success || res.RestoredCount != 0 {
		t.Fatalf("Restore([]) = %+v, %v", res, err)
	}
	all, _ := r.ListAll(context.Background())
	if len(all) != 0 {
		t.Fatalf("expected empty collection, got %d", len(all))
	}
}

const validBackupPost = `{"id":"1","title":"T","slug":"t","content":"c","excerpt":"e","tags":["go"],"createdAt":"2024-01-01T00:00:00.000Z","updatedAt":"2024-01-01T00:00:00.000Z","author":"a","published":true}`

func TestRestoreRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{"not json", `{{{`, "JSON array"},
		{"object", `{"posts":[]}`, "JSON array"},
		{"element not object", `[1]`, "must be an object"},
		{"missing id", `[{"title":"T","slug":"t","content":"c","excerpt":"e","tags":[],"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z","author":"a","published":true}]`, `"id"`},
		{"published as string", strings.Replace("["+validBackupPost+"]", `"published":true`, `"published":"yes"`, 1), `"published" must be a boolean`},
		{"tags not strings", strings.Replace("["+validBackupPost+"]", `"tags":["go"]`, `"tags":[1]`, 1), `"tags" must be an array of strings`},
		{"bad timestamp", strings.Replace("["+validBackupPost+"]", `"createdAt":"2024-01-01T00:00:00.000Z"`, `"createdAt":"yesterday"`, 1), "ISO-8601"},
		{"empty slug", strings.Replace("["+validBackupPost+"]", `"slug":"t"`, `"slug":""`, 1), "Slug is required"},
		{"duplicate id", "[" + validBackupPost + "," + strings.Replace(validBackupPost, `"slug":"t"`, `"slug":"u"`, 1) + "]", "id \"1\" already used"},
		{"duplicate slug", "[" + validBackupPost + "," + strings.Replace(validBackupPost, `"id":"1"`, `"id":"2"`, 1) + "]", "slug \"t\" already used"},
		{"bad content tag", strings.Replace("["+validBackupPost+"]", `"published":true`, `"published":true,"contentTag":"robot"`, 1), "ContentTag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, inv, _ := newTestRepo(t)
			existing := mustCreate(t, r, PostDraft{Title: "keep me"})

			res, err := r.Restore(context.Background(), []byte(tt.doc))
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if res.Success {
				t.Errorf("expected Success false")
			}
			if !strings.Contains(res.Message, tt.problem) {
				t.Errorf("message %q does not mention %q", res.Message, tt.problem)
			}
			if _, err := r.FindByID(context.Background(), existing.ID); err != nil {
				t.Errorf("existing post lost after rejected restore: %v", err)
			}
			if inv.count() != 1 {
				t.Errorf("rejected restore must not invalidate")
			}
		})
	}
}

func TestRestoreAcceptsNullOptionalFields(t *testing.T) {
	r, _, _ := newTestRepo(t)
	doc := "[" + strings.Replace(validBackupPost, `"published":true`, `"published":true,"featuredImage":null`, 1) + "]"
	if _, err := r.Restore(context.Background(), []byte(doc)); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}

func TestBackupFileName(t *testing.T) {
	got := BackupFileName(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	if got != "blog-backup-2024-03-09.json" {
		t.Errorf("BackupFileName = %q", got)
	}
}

type fakeUploader struct {
	key         string
	body        []byte
	contentType string
	err         error
}

func (u *fakeUploader) Upload(_ context.Context, key string, body io.Reader, contentType string) error {
	if u.err != nil {
		return u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	u.key, u.body, u.contentType = key, data, contentType
	return nil
}

func TestPushBackup(t *testing.T) {
	r, _, _ := newTestRepo(t)
	mustCreate(t, r, PostDraft{Title: "remote"})
	up := &fakeUploader{}

	key, n, err := PushBackup(context.Background(), r, up, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PushBackup: %v", err)
	}
	if key != "blog-backup-2024-05-01.json" || up.key != key {
		t.Errorf("key = %q, uploaded as %q", key, up.key)
	}
	if n != 1 || up.contentType != "application/json" {
		t.Errorf("n = %d, content type %q", n, up.contentType)
	}

	restored, _, _ := newTestRepo(t)
	if res, err := restored.Restore(context.Background(), up.body); err != nil || res.RestoredCount != 1 {
		t.Fatalf("uploaded document does not restore: %+v, %v", res, err)
	}
}

func TestPushBackupUploadError(t *testing.T) {
	r, _, _ := newTestRepo(t)
	boom := errors.New("boom")
	if _, _, err := PushBackup(context.Background(), r, &fakeUploader{err: boom}, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected upload error, got %v", err)
	}
}
