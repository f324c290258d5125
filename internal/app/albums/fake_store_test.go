package albums

import (
	"context"
	"sync"

	"albumserver/internal/store"
)

type fakeStore struct {
	mu     sync.Mutex
	albums []store.Album
	nextID int64

	titleErr  error
	insertErr error
	artistErr error

	artistCalls int
	insertCalls int
}

func (f *fakeStore) AlbumsByArtist(_ context.Context, artist string) ([]store.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.artistCalls++
	if f.artistErr != nil {
		return nil, f.artistErr
	}

	out := []store.Album{}
	for _, a := range f.albums {
		if a.Artist == artist {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) AlbumByTitle(_ context.Context, title string) (store.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.titleErr != nil {
		return store.Album{}, f.titleErr
	}
	for _, a := range f.albums {
		if a.Title == title {
			return a, nil
		}
	}
	return store.Album{}, store.ErrAlbumNotFound
}

func (f *fakeStore) InsertAlbum(_ context.Context, album store.Album) (store.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls++
	if f.insertErr != nil {
		return store.Album{}, f.insertErr
	}
	f.nextID++
	album.ID = f.nextID
	f.albums = append(f.albums, album)
	return album, nil
}

type fakeCache struct {
	entries     map[string][]store.Album
	generations map[string]int64
	readErr     error
	sets        int
	staleSets   int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]store.Album{}, generations: map[string]int64{}}
}

func (c *fakeCache) Artist(_ context.Context, artist string) ([]store.Album, bool, error) {
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	albums, ok := c.entries[artist]
	return albums, ok, nil
}

func (c *fakeCache) Generation(_ context.Context, artist string) (int64, error) {
	return c.generations[artist], nil
}

func (c *fakeCache) SetArtist(_ context.Context, artist string, generation int64, albums []store.Album) error {
	if c.generations[artist] != generation {
		c.staleSets++
		return nil
	}
	c.sets++
	c.entries[artist] = albums
	return nil
}

func (c *fakeCache) InvalidateArtist(_ context.Context, artist string) error {
	c.invalidated = append(c.invalidated, artist)
	c.generations[artist]++
	delete(c.entries, artist)
	return nil
}

// hookStore runs afterArtistRead once, right after the first artist lookup
// has read its rows.
type hookStore struct {
	*fakeStore
	afterArtistRead func()
}

func (h *hookStore) AlbumsByArtist(ctx context.Context, artist string) ([]store.Album, error) {
	albums, err := h.fakeStore.AlbumsByArtist(ctx, artist)
	if hook := h.afterArtistRead; hook != nil {
		h.afterArtistRead = nil
		hook()
	}
	return albums, err
}

func str(s string) *string { return &s }

func submission(year, artist, genre, album string) Submission {
	return Submission{Year: str(year), Artist: str(artist), Genre: str(genre), Album: str(album)}
}
