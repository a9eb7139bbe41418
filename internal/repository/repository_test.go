package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/liliang-cn/castle/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "castle.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestChunkRepositoryInsertAndScan(t *testing.T) {
	repo := NewChunkRepository(newTestDB(t))
	ctx := context.Background()

	chunks := []domain.Chunk{
		{Text: "alpha", Metadata: map[string]any{domain.MetadataKeySource: "a.txt"}},
		{Text: "beta"},
	}
	vectors := [][]float32{{1, 0, 0.5}, {0, 1, -0.25}}

	ids, err := repo.Insert(ctx, "test/model", chunks, vectors)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("expected two distinct ids, got %v", ids)
	}

	// other models are not visible
	if _, err := repo.Insert(ctx, "other/model", chunks[:1], vectors[:1]); err != nil {
		t.Fatal(err)
	}

	got := map[string]StoredChunk{}
	err = repo.Scan(ctx, "test/model", func(sc StoredChunk) error {
		got[sc.Chunk.Text] = sc
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got["alpha"].Chunk.Source() != "a.txt" {
		t.Errorf("expected metadata to round trip, got %v", got["alpha"].Chunk.Metadata)
	}
	if e := got["beta"].Embedding; len(e) != 3 || e[2] != -0.25 {
		t.Errorf("unexpected embedding %v", e)
	}

	if n := countChunks(t, repo.db, "test/model"); n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}
}

func TestChunkRepositoryScanReportsCorruptMetadata(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepository(db)
	ctx := context.Background()

	ids, err := repo.Insert(ctx, "m", []domain.Chunk{{Text: "x"}}, [][]float32{{1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE chunks SET metadata = '{bad' WHERE id = ?`, ids[0]); err != nil {
		t.Fatal(err)
	}

	calls := 0
	err = repo.Scan(ctx, "m", func(StoredChunk) error {
		calls++
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), ids[0]) {
		t.Fatalf("expected decode error naming %s, got %v", ids[0], err)
	}
	if calls != 0 {
		t.Errorf("expected corrupt row to be skipped, got %d calls", calls)
	}
}

func TestChunkRepositoryConcurrentInserts(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepository(db)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunks := make([]domain.Chunk, 50)
			vectors := make([][]float32, 50)
			for j := range chunks {
				chunks[j] = domain.Chunk{Text: "x"}
				vectors[j] = []float32{1, 2}
			}
			if _, err := repo.Insert(context.Background(), "m", chunks, vectors); err != nil {
				t.Errorf("Insert: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := countChunks(t, db, "m"); n != 400 {
		t.Errorf("expected 400 chunks, got %d", n)
	}
}

func countChunks(t *testing.T, db *DB, model string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE model = ?`, model).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestChunkRepositoryRejectsMismatch(t *testing.T) {
	repo := NewChunkRepository(newTestDB(t))
	_, err := repo.Insert(context.Background(), "m", []domain.Chunk{{Text: "x"}}, nil)
	if err == nil {
		t.Error("expected error for mismatched vectors")
	}
}

func TestPromptRepositoryMissingFile(t *testing.T) {
	repo := NewPromptRepository(filepath.Join(t.TempDir(), "prompts.json"))
	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if list.Items == nil || len(list.Items) != 0 {
		t.Errorf("expected empty non-nil items, got %#v", list.Items)
	}
}

func TestPromptRepositoryUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "prompts.json")
	repo := NewPromptRepository(path)

	for _, p := range []domain.Prompt{
		{Name: "concise", Text: "Be brief.", Version: "1"},
		{Name: "pirate", Text: "Talk like a pirate.", Version: "1"},
		{Name: "concise", Text: "Be very brief.", Version: "2"},
	} {
		if _, err := repo.Upsert(p); err != nil {
			t.Fatalf("Upsert %s: %v", p.Name, err)
		}
	}

	list, err := NewPromptRepository(path).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(list.Items))
	}
	// replaced in place, not moved to the end
	if list.Items[0].Name != "concise" || list.Items[0].Text != "Be very brief." || list.Items[0].Version != "2" {
		t.Errorf("unexpected first prompt %+v", list.Items[0])
	}
	if list.Items[1].Name != "pirate" {
		t.Errorf("unexpected second prompt %+v", list.Items[1])
	}

	p, err := repo.Get("pirate")
	if err != nil || p.Text != "Talk like a pirate." {
		t.Errorf("Get: %+v, %v", p, err)
	}
	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrPromptNotFound) {
		t.Errorf("expected ErrPromptNotFound, got %v", err)
	}

	// no temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only prompts.json, got %d entries", len(entries))
	}
}

func TestPromptRepositoryConcurrentUpserts(t *testing.T) {
	repo := NewPromptRepository(filepath.Join(t.TempDir(), "prompts.json"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			if _, err := repo.Upsert(domain.Prompt{Name: name, Text: "t"}); err != nil {
				t.Errorf("Upsert: %v", err)
			}
		}(i)
	}
	wg.Wait()

	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 20 {
		t.Errorf("expected 20 prompts, got %d", len(list.Items))
	}
}
