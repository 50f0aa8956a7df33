package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestRun(started time.Time) *Run {
	return &Run{
		InputRoot:  "/media/in",
		OutputRoot: "/media/out",
		Engine:     "ffmpeg",
		Quality:    30,
		Workers:    2,
		Remux:      true,
		StartedAt:  started,
	}
}

func TestSQLiteStore_BeginRun_AssignsID(t *testing.T) {
	store := newTestStore(t)

	run := createTestRun(time.Time{})
	if err := store.BeginRun(run); err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run ID to be assigned")
	}
	if run.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.InputRoot != run.InputRoot || got.Engine != run.Engine || !got.Remux || got.Workers != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Finished() {
		t.Error("run should not be finished yet")
	}
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSQLiteStore_RecordAndFinish(t *testing.T) {
	store := newTestStore(t)

	run := createTestRun(time.Now())
	if err := store.BeginRun(run); err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}

	records := []*ResultRecord{
		{RunID: run.ID, JobID: "01A", InputPath: "/media/in/a.mkv", OutputPath: "/media/out/a_compressed.mp4",
			Outcome: "encoded", InputSize: 1000, OutputSize: 400, Elapsed: 1500 * time.Millisecond},
		{RunID: run.ID, JobID: "01B", InputPath: "/media/in/b.mov", OutputPath: "/media/out/b_compressed.mp4",
			Outcome: "failed", Error: "encode failed: exit status 1", InputSize: 2000},
	}
	for _, rec := range records {
		if err := store.RecordResult(rec); err != nil {
			t.Fatalf("failed to record result: %v", err)
		}
	}

	run.Total, run.Encoded, run.Failed = 2, 1, 1
	run.InputBytes, run.OutputBytes = 1000, 400
	if err := store.FinishRun(run); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if !got.Finished() {
		t.Error("run should be finished")
	}
	if got.Encoded != 1 || got.Failed != 1 || got.Total != 2 {
		t.Errorf("counters = %+v", got)
	}
	if got.SpaceSaved() != 600 {
		t.Errorf("SpaceSaved = %d, want 600", got.SpaceSaved())
	}

	results, err := store.GetResults(run.ID)
	if err != nil {
		t.Fatalf("failed to get results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].JobID != "01A" || results[0].Elapsed != 1500*time.Millisecond || results[0].OutputSize != 400 {
		t.Errorf("result[0] = %+v", results[0])
	}
	if results[1].Error == "" || results[1].OutputSize != 0 {
		t.Errorf("result[1] = %+v", results[1])
	}

	saved, err := store.LifetimeSaved()
	if err != nil {
		t.Fatalf("failed to get lifetime saved: %v", err)
	}
	if saved != 600 {
		t.Errorf("LifetimeSaved = %d, want 600", saved)
	}
}

func TestSQLiteStore_LifetimeSavedAccumulates(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		run := createTestRun(time.Now())
		if err := store.BeginRun(run); err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}
		run.InputBytes, run.OutputBytes = 500, 300
		if err := store.FinishRun(run); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}
	}

	// A run that grew the files must not reduce the total
	grew := createTestRun(time.Now())
	if err := store.BeginRun(grew); err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}
	grew.InputBytes, grew.OutputBytes = 100, 200
	if err := store.FinishRun(grew); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	saved, err := store.LifetimeSaved()
	if err != nil {
		t.Fatalf("failed to get lifetime saved: %v", err)
	}
	if saved != 600 {
		t.Errorf("LifetimeSaved = %d, want 600", saved)
	}
}

func TestSQLiteStore_FinishRun_Unknown(t *testing.T) {
	store := newTestStore(t)

	err := store.FinishRun(&Run{ID: "nope"})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		run := createTestRun(base.Add(time.Duration(i) * 1500 * time.Millisecond))
		if err := store.BeginRun(run); err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(3)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i, want := range []string{ids[4], ids[3], ids[2]} {
		if runs[i].ID != want {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, want)
		}
	}
	if !runs[0].StartedAt.Equal(base.Add(6 * time.Second)) {
		t.Errorf("StartedAt = %v", runs[0].StartedAt)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	run := createTestRun(time.Now())
	if err := store.BeginRun(run); err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	if reopened.Path() != dbPath {
		t.Errorf("Path = %s, want %s", reopened.Path(), dbPath)
	}
	got, err := reopened.GetRun(run.ID)
	if err != nil || got == nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
}

func TestSQLiteStore_ConcurrentRecordResult(t *testing.T) {
	store := newTestStore(t)

	run := createTestRun(time.Now())
	if err := store.BeginRun(run); err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.RecordResult(&ResultRecord{
				RunID:      run.ID,
				JobID:      fmt.Sprintf("job-%02d", i),
				InputPath:  fmt.Sprintf("/in/%02d.mkv", i),
				OutputPath: fmt.Sprintf("/out/%02d_compressed.mp4", i),
				Outcome:    "encoded",
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent record failed: %v", err)
		}
	}

	results, err := store.GetResults(run.ID)
	if err != nil {
		t.Fatalf("failed to get results: %v", err)
	}
	if len(results) != n {
		t.Errorf("expected %d results, got %d", n, len(results))
	}
}
