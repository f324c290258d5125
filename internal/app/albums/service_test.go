package albums

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"albumserver/internal/store"
)

func TestAddThenListRoundTrip(t *testing.T) {
	svc := New(&fakeStore{})
	ctx := context.Background()

	saved, err := svc.Add(ctx, submission("1967", "The Beatles", "Rock", "Sgt. Pepper's"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if saved.ID == 0 {
		t.Fatalf("expected id to be assigned, got %#v", saved)
	}

	albums, err := svc.ListByArtist(ctx, "The Beatles")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("expected 1 album, got %d", len(albums))
	}
	want := store.Album{ID: saved.ID, Year: 1967, Artist: "The Beatles", Genre: "Rock", Title: "Sgt. Pepper's"}
	if albums[0] != want {
		t.Fatalf("expected %#v, got %#v", want, albums[0])
	}
}

func TestListByArtistIsIdempotent(t *testing.T) {
	fs := &fakeStore{}
	svc := New(fs)
	ctx := context.Background()

	for _, sub := range []Submission{
		submission("1994", "Portishead", "Trip Hop", "Dummy"),
		submission("1997", "Portishead", "Trip Hop", "Portishead (Album)"),
		submission("1998", "Massive Attack", "Trip Hop", "Mezzanine"),
	} {
		if _, err := svc.Add(ctx, sub); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	first, err := svc.ListByArtist(ctx, "Portishead")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	second, err := svc.ListByArtist(ctx, "Portishead")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(first) != 2 || !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %#v and %#v", first, second)
	}
}

func TestListByArtistEmpty(t *testing.T) {
	albums, err := New(&fakeStore{}).ListByArtist(context.Background(), "Unknown Artist")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(albums) != 0 {
		t.Fatalf("expected no albums, got %#v", albums)
	}
}

func TestAddDuplicateTitle(t *testing.T) {
	fs := &fakeStore{}
	svc := New(fs)
	ctx := context.Background()

	if _, err := svc.Add(ctx, submission("1990", "First", "Rock", "X")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, err := svc.Add(ctx, submission("2005", "Second", "Jazz", "X"))
	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Reason != ReasonAlbumAlreadyExists {
		t.Fatalf("expected AlbumAlreadyExists, got %v", err)
	}
	if fs.insertCalls != 1 {
		t.Fatalf("expected a single insert, got %d", fs.insertCalls)
	}
}

func TestAddRejectionSkipsInsert(t *testing.T) {
	fs := &fakeStore{}
	_, err := New(fs).Add(context.Background(), submission("2201", "A", "B", "C"))

	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Reason != ReasonInvalidYear {
		t.Fatalf("expected InvalidYear, got %v", err)
	}
	if fs.insertCalls != 0 {
		t.Fatalf("rejected submission must not be inserted")
	}
}

func TestAddStorageFailure(t *testing.T) {
	boom := errors.New("disk full")
	_, err := New(&fakeStore{insertErr: boom}).Add(context.Background(), submission("1999", "A", "B", "C"))

	var rejection *Rejection
	if errors.As(err, &rejection) {
		t.Fatalf("storage failure must not be a rejection: %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestAddUniqueIndexCollision(t *testing.T) {
	_, err := New(&fakeStore{insertErr: store.ErrDuplicateTitle}).Add(context.Background(), submission("1999", "A", "B", "C"))

	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Reason != ReasonAlbumAlreadyExists {
		t.Fatalf("expected AlbumAlreadyExists, got %v", err)
	}
}

func TestAddCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := &fakeStore{}
	if _, err := New(fs).Add(ctx, submission("1999", "A", "B", "C")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fs.insertCalls != 0 {
		t.Fatalf("expected no insert")
	}
}

func TestListByArtistUsesCache(t *testing.T) {
	fs := &fakeStore{}
	cache := newFakeCache()
	svc := New(fs, WithCache(cache))
	ctx := context.Background()

	if _, err := svc.Add(ctx, submission("2017", "Bonobo", "Electronic", "Migration")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for i := 0; i < 3; i++ {
		albums, err := svc.ListByArtist(ctx, "Bonobo")
		if err != nil {
			t.Fatalf("ListByArtist: %v", err)
		}
		if len(albums) != 1 {
			t.Fatalf("expected 1 album, got %d", len(albums))
		}
	}
	if fs.artistCalls != 1 {
		t.Fatalf("expected one store lookup, got %d", fs.artistCalls)
	}

	// A new album for the artist must be visible straight away.
	if _, err := svc.Add(ctx, submission("2010", "Bonobo", "Electronic", "Black Sands")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	albums, err := svc.ListByArtist(ctx, "Bonobo")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("expected 2 albums after invalidation, got %d", len(albums))
	}
	if !reflect.DeepEqual(cache.invalidated, []string{"Bonobo", "Bonobo"}) {
		t.Fatalf("unexpected invalidations: %#v", cache.invalidated)
	}
}

func TestListByArtistSkipsFillAfterConcurrentAdd(t *testing.T) {
	hs := &hookStore{fakeStore: &fakeStore{albums: []store.Album{
		{ID: 1, Year: 2017, Artist: "Bonobo", Genre: "Electronic", Title: "Migration"},
	}, nextID: 1}}
	cache := newFakeCache()
	svc := New(hs, WithCache(cache))
	ctx := context.Background()

	hs.afterArtistRead = func() {
		if _, err := svc.Add(ctx, submission("2010", "Bonobo", "Electronic", "Black Sands")); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	first, err := svc.ListByArtist(ctx, "Bonobo")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected the list read before the insert, got %d albums", len(first))
	}
	if cache.staleSets != 1 || cache.sets != 0 {
		t.Fatalf("expected the fill to be skipped, got sets=%d stale=%d", cache.sets, cache.staleSets)
	}

	second, err := svc.ListByArtist(ctx, "Bonobo")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("expected 2 albums after the insert, got %d", len(second))
	}
	if cache.sets != 1 {
		t.Fatalf("expected the fresh list to be cached, got %d sets", cache.sets)
	}
}

func TestListByArtistCacheFailureFallsBack(t *testing.T) {
	fs := &fakeStore{albums: []store.Album{{ID: 1, Year: 2013, Artist: "Nils Frahm", Genre: "Modern Classical", Title: "Spaces"}}}
	cache := newFakeCache()
	cache.readErr = errors.New("connection refused")

	albums, err := New(fs, WithCache(cache)).ListByArtist(context.Background(), "Nils Frahm")
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(albums) != 1 || fs.artistCalls != 1 {
		t.Fatalf("expected store fallback, got %#v (calls %d)", albums, fs.artistCalls)
	}
}

// TestDuplicateCheckRace shows that the duplicate check and the insert are not
// isolated: two submissions validated before either is written both succeed.
func TestDuplicateCheckRace(t *testing.T) {
	db, err := sql.Open(store.DriverSQLite, store.SQLiteDSN(filepath.Join(t.TempDir(), "albums.sqlite3")))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	st := store.New(db, store.Options{Driver: store.DriverSQLite})
	ctx := context.Background()
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	v := NewValidator(st)
	first := submission("1997", "Radiohead", "Alternative Rock", "OK Computer")
	second := submission("2017", "Radiohead", "Alternative Rock", "OK Computer")

	for _, sub := range []Submission{first, second} {
		rejection, err := v.Check(ctx, sub)
		if err != nil || rejection != nil {
			t.Fatalf("expected both checks to pass before any insert, got %v / %v", rejection, err)
		}
	}
	for _, year := range []int{1997, 2017} {
		if _, err := st.InsertAlbum(ctx, store.Album{Year: year, Artist: "Radiohead", Genre: "Alternative Rock", Title: "OK Computer"}); err != nil {
			t.Fatalf("InsertAlbum: %v", err)
		}
	}

	albums, err := st.AlbumsByArtist(ctx, "Radiohead")
	if err != nil {
		t.Fatalf("AlbumsByArtist: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("expected the race to produce 2 rows, got %d", len(albums))
	}

	// Once a row exists the check catches the duplicate.
	rejection, err := v.Check(ctx, first)
	if err != nil || rejection == nil || rejection.Reason != ReasonAlbumAlreadyExists {
		t.Fatalf("expected AlbumAlreadyExists, got %v / %v", rejection, err)
	}
}
