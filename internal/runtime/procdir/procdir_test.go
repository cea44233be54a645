package procdir

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeDirectory struct {
	mu         sync.Mutex
	pids       map[string][]int
	listErr    error
	failPIDs   map[int]error
	terminated []int
}

func (f *fakeDirectory) ListPIDs(ctx context.Context, image string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]int(nil), f.pids[image]...), nil
}

func (f *fakeDirectory) Terminate(ctx context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failPIDs[pid]; err != nil {
		return err
	}
	f.terminated = append(f.terminated, pid)
	return nil
}

func TestTerminateByNameNoMatchIsNoop(t *testing.T) {
	dir := &fakeDirectory{pids: map[string][]int{}}

	n, err := TerminateByName(context.Background(), dir, "missing.exe", nil)
	if err != nil {
		t.Fatalf("expected no error when nothing matches, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 terminated, got %d", n)
	}
	if len(dir.terminated) != 0 {
		t.Fatalf("expected no terminate calls, got %v", dir.terminated)
	}
}

func TestTerminateByNameSkipsFailures(t *testing.T) {
	dir := &fakeDirectory{
		pids:     map[string][]int{"api.exe": {10, 11, 12}},
		failPIDs: map[int]error{11: errors.New("access denied")},
	}

	n, err := TerminateByName(context.Background(), dir, "api.exe", nil)
	if err != nil {
		t.Fatalf("per-pid failures must not be returned, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 terminated, got %d", n)
	}
	if got := dir.terminated; len(got) != 2 || got[0] != 10 || got[1] != 12 {
		t.Fatalf("unexpected terminated pids: %v", got)
	}
}

func TestTerminateByNameReturnsListError(t *testing.T) {
	listErr := errors.New("process table unavailable")
	dir := &fakeDirectory{listErr: listErr}

	_, err := TerminateByName(context.Background(), dir, "api.exe", nil)
	if !errors.Is(err, listErr) {
		t.Fatalf("expected list error, got %v", err)
	}
}
