package pages

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
)

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	store, repo := setupStore(t)
	ctx := context.Background()

	first, err := store.CreateNewPage(ctx, CreateParams{})
	if err != nil {
		t.Fatalf("CreateNewPage returned error: %v", err)
	}
	thumb := "thumb.png"
	if _, err := store.UpdatePage(ctx, first.ID, PagePatch{Thumbnail: &thumb}); err != nil {
		t.Fatalf("UpdatePage returned error: %v", err)
	}
	code := "<p>second</p>"
	if _, err := store.CreateNewPage(ctx, CreateParams{Code: &code}); err != nil {
		t.Fatalf("CreateNewPage returned error: %v", err)
	}

	exported, err := store.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll returned error: %v", err)
	}

	raw, err := EncodeBackup(exported)
	if err != nil {
		t.Fatalf("EncodeBackup returned error: %v", err)
	}

	count, err := store.ImportJSON(ctx, raw)
	if err != nil {
		t.Fatalf("ImportJSON returned error: %v", err)
	}
	if count != len(exported.Pages) {
		t.Fatalf("expected %d imported pages, got %d", len(exported.Pages), count)
	}

	stored, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All returned error: %v", err)
	}
	if len(stored) != 2*len(exported.Pages) {
		t.Fatalf("expected page count to double, got %d", len(stored))
	}
	if len(store.Pages()) != len(stored) {
		t.Fatalf("expected import to reload the in-memory list")
	}

	for _, original := range exported.Pages {
		var copies int
		for _, page := range stored {
			if page.ID == original.ID {
				continue
			}
			if samePageContent(page, original) {
				copies++
			}
		}
		if copies != 1 {
			t.Fatalf("expected exactly one imported copy of %q with a new id, got %d", original.ID, copies)
		}
	}
}

func TestImportJSONRejectsInvalidPayloads(t *testing.T) {
	t.Parallel()

	payloads := map[string]string{
		"pages not an array": `{"pages":"not-an-array"}`,
		"null":               `null`,
		"empty":              ``,
		"top-level array":    `[]`,
		"missing pages":      `{"items":[]}`,
		"broken json":        `{"pages":[`,
		"entry not object":   `{"pages":[1]}`,
		"mistyped field":     `{"pages":[{"title":5}]}`,
	}

	for name, payload := range payloads {
		payload := payload
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, repo := setupStubbedStore(t)

			_, err := store.ImportJSON(context.Background(), []byte(payload))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !eris.Is(err, ErrInvalidBackup) {
				t.Fatalf("expected ErrInvalidBackup, got %v", err)
			}
			if repo.adds != 0 {
				t.Fatalf("expected no writes, got %d", repo.adds)
			}
		})
	}
}

func TestImportRejectsMissingPages(t *testing.T) {
	t.Parallel()

	store, _ := setupStubbedStore(t)

	if _, err := store.Import(context.Background(), nil); !eris.Is(err, ErrInvalidBackup) {
		t.Fatalf("expected ErrInvalidBackup for nil backup, got %v", err)
	}
	if _, err := store.Import(context.Background(), &Backup{}); !eris.Is(err, ErrInvalidBackup) {
		t.Fatalf("expected ErrInvalidBackup for nil pages, got %v", err)
	}
}

func TestImportAcceptsEmptyPages(t *testing.T) {
	t.Parallel()

	store, _ := setupStubbedStore(t)

	count, err := store.ImportJSON(context.Background(), []byte(`{"pages":[]}`))
	if err != nil {
		t.Fatalf("ImportJSON returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 imported pages, got %d", count)
	}
}

func TestImportAssignsFreshIDsAndDefaultsTimestamps(t *testing.T) {
	t.Parallel()

	store, repo := setupStubbedStore(t)
	ctx := context.Background()

	raw := []byte(`{"pages":[
		{"id":"keep-me","title":"Dated","code":"<p>d</p>","createdAt":5,"updatedAt":7},
		{"id":"keep-me","title":"Undated"},
		{"code":"<p>no title</p>","extra":"ignored"}
	]}`)

	count, err := store.ImportJSON(ctx, raw)
	if err != nil {
		t.Fatalf("ImportJSON returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 imported pages, got %d", count)
	}

	stored, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All returned error: %v", err)
	}

	ids := map[string]bool{}
	for _, page := range stored {
		if page.ID == "keep-me" {
			t.Fatalf("expected incoming ids to be discarded")
		}
		if ids[page.ID] {
			t.Fatalf("expected unique ids, got duplicate %q", page.ID)
		}
		ids[page.ID] = true

		switch page.Title {
		case "Dated":
			if page.CreatedAt != 5 || page.UpdatedAt != 7 {
				t.Fatalf("expected timestamps to be preserved, got %d/%d", page.CreatedAt, page.UpdatedAt)
			}
		case "Undated", "":
			if page.CreatedAt == 0 || page.UpdatedAt == 0 {
				t.Fatalf("expected missing timestamps to default to now, got %d/%d", page.CreatedAt, page.UpdatedAt)
			}
		default:
			t.Fatalf("unexpected title %q", page.Title)
		}
	}

	listed := store.Pages()
	if listed[len(listed)-1].Title != "Dated" {
		t.Fatalf("expected the oldest imported page to sort last, got %q", listed[len(listed)-1].Title)
	}
}

func TestImportStopsAtFirstFailedWrite(t *testing.T) {
	t.Parallel()

	store, repo := setupStubbedStore(t)
	repo.addErr = errStub("disk full")
	repo.failAfterN = 2

	raw := []byte(`{"pages":[{"title":"a"},{"title":"b"},{"title":"c"},{"title":"d"}]}`)

	count, err := store.ImportJSON(context.Background(), raw)
	if err == nil {
		t.Fatalf("expected storage error to abort the import")
	}
	if err.Error() != "disk full" {
		t.Fatalf("expected storage error verbatim, got %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pages written before the failure, got %d", count)
	}
	if repo.adds != 2 {
		t.Fatalf("expected earlier writes to remain, got %d", repo.adds)
	}
}

func TestExportAllReadsFromStorage(t *testing.T) {
	t.Parallel()

	store, repo := setupStore(t)
	ctx := context.Background()

	if err := repo.Add(ctx, &Page{ID: "direct", Title: "written behind the store's back"}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	if len(store.Pages()) != 0 {
		t.Fatalf("expected in-memory list to be stale")
	}

	exported, err := store.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll returned error: %v", err)
	}
	if len(exported.Pages) != 1 || exported.Pages[0].ID != "direct" {
		t.Fatalf("expected export to include the stored page, got %#v", exported.Pages)
	}
}

func TestEncodeBackupWritesEmptyArray(t *testing.T) {
	t.Parallel()

	raw, err := EncodeBackup(&Backup{})
	if err != nil {
		t.Fatalf("EncodeBackup returned error: %v", err)
	}

	decoded, err := DecodeBackup(raw)
	if err != nil {
		t.Fatalf("DecodeBackup returned error: %v", err)
	}
	if decoded.Pages == nil || len(decoded.Pages) != 0 {
		t.Fatalf("expected an empty, non-nil pages slice, got %#v", decoded.Pages)
	}

	if _, err := EncodeBackup(nil); err == nil {
		t.Fatalf("expected error for nil backup")
	}
}

func samePageContent(a, b Page) bool {
	if a.Title != b.Title || a.Code != b.Code || a.CreatedAt != b.CreatedAt || a.UpdatedAt != b.UpdatedAt {
		return false
	}
	if (a.Thumbnail == nil) != (b.Thumbnail == nil) {
		return false
	}
	return a.Thumbnail == nil || *a.Thumbnail == *b.Thumbnail
}
