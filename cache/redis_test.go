package cache

import (
	"errors"
	"reflect"
	"testing"
)

// fakePages models a keyspace that SCAN serves in several pages, the way a
// server does once it holds more keys than one COUNT batch.
type fakePages struct {
	pages   map[uint64]struct{ keys []string; next uint64 }
	scanned []uint64
	deleted []string
}

func (f *fakePages) scan(cursor uint64) ([]string, uint64, error) {
	f.scanned = append(f.scanned, cursor)
	page, ok := f.pages[cursor]
	if !ok {
		return nil, 0, errors.New("unknown cursor")
	}
	return page.keys, page.next, nil
}

func (f *fakePages) del(keys []string) error {
	f.deleted = append(f.deleted, keys...)
	return nil
}

func TestDeleteMatchingAdvancesCursorAcrossPages(t *testing.T) {
	fake := &fakePages{
		pages: map[uint64]struct{ keys []string; next uint64 }{
			0:  {keys: []string{"resp:1:a", "resp:1:b"}, next: 7},
			7:  {keys: []string{"resp:1:c"}, next: 13},
			13: {keys: []string{"resp:1:d"}, next: 0},
		},
	}

	if err := deleteMatching(fake.scan, fake.del); err != nil {
		t.Fatalf("deleteMatching returned %v", err)
	}

	wantScans := []uint64{0, 7, 13}
	if !reflect.DeepEqual(fake.scanned, wantScans) {
		t.Errorf("scanned cursors = %v, want %v (each page visited once)", fake.scanned, wantScans)
	}

	wantDeleted := []string{"resp:1:a", "resp:1:b", "resp:1:c", "resp:1:d"}
	if !reflect.DeepEqual(fake.deleted, wantDeleted) {
		t.Errorf("deleted = %v, want %v", fake.deleted, wantDeleted)
	}
}

func TestDeleteMatchingSkipsEmptyPages(t *testing.T) {
	fake := &fakePages{
		pages: map[uint64]struct{ keys []string; next uint64 }{
			0: {keys: nil, next: 4},
			4: {keys: []string{"resp:2:x"}, next: 0},
		},
	}

	if err := deleteMatching(fake.scan, fake.del); err != nil {
		t.Fatalf("deleteMatching returned %v", err)
	}
	if !reflect.DeepEqual(fake.deleted, []string{"resp:2:x"}) {
		t.Errorf("deleted = %v, want the key from the second page", fake.deleted)
	}
}

func TestDeleteMatchingSinglePage(t *testing.T) {
	fake := &fakePages{
		pages: map[uint64]struct{ keys []string; next uint64 }{
			0: {keys: []string{"resp:3:a"}, next: 0},
		},
	}

	if err := deleteMatching(fake.scan, fake.del); err != nil {
		t.Fatalf("deleteMatching returned %v", err)
	}
	if len(fake.scanned) != 1 {
		t.Errorf("scans = %d, want 1", len(fake.scanned))
	}
}

func TestDeleteMatchingScanErrorPropagates(t *testing.T) {
	scanErr := errors.New("connection reset")
	err := deleteMatching(
		func(cursor uint64) ([]string, uint64, error) { return nil, 0, scanErr },
		func(keys []string) error { return nil },
	)
	if !errors.Is(err, scanErr) {
		t.Errorf("err = %v, want wrapped scan error", err)
	}
}

func TestDeleteMatchingDeleteErrorPropagates(t *testing.T) {
	delErr := errors.New("readonly replica")
	err := deleteMatching(
		func(cursor uint64) ([]string, uint64, error) { return []string{"k"}, 0, nil },
		func(keys []string) error { return delErr },
	)
	if !errors.Is(err, delErr) {
		t.Errorf("err = %v, want wrapped delete error", err)
	}
}
