package albums

import (
	"context"
	"errors"
	"strconv"

	"albumserver/internal/logging"
	"albumserver/internal/store"
)

// Store captures the persistence needs for album workflows.
type Store interface {
	AlbumsByArtist(ctx context.Context, artist string) ([]store.Album, error)
	AlbumByTitle(ctx context.Context, title string) (store.Album, error)
	InsertAlbum(ctx context.Context, album store.Album) (store.Album, error)
}

// Cache keeps recent artist lookups. Implementations may drop entries at any time.
//
// Every InvalidateArtist bumps the artist's generation. SetArtist must only
// store albums when the generation still equals the one read before the
// albums were loaded, so a fill racing an insert never resurrects an old list.
type Cache interface {
	Artist(ctx context.Context, artist string) ([]store.Album, bool, error)
	Generation(ctx context.Context, artist string) (int64, error)
	SetArtist(ctx context.Context, artist string, generation int64, albums []store.Album) error
	InvalidateArtist(ctx context.Context, artist string) error
}

// Service coordinates album-related operations.
type Service interface {
	ListByArtist(ctx context.Context, artist string) ([]store.Album, error)
	Add(ctx context.Context, sub Submission) (store.Album, error)
}

// Option customises a Service.
type Option func(*service)

// WithCache puts cache in front of artist lookups.
func WithCache(cache Cache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

type service struct {
	store     Store
	validator *Validator
	cache     Cache
}

// New constructs a Service backed by the provided Store.
func New(store Store, opts ...Option) Service {
	s := &service{
		store:     store,
		validator: NewValidator(store),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ListByArtist(ctx context.Context, artist string) ([]store.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fill := s.cache != nil
	var generation int64
	if s.cache != nil {
		albums, ok, err := s.cache.Artist(ctx, artist)
		switch {
		case err != nil:
			logging.WithContext(ctx).Warn().Err(err).Str("artist", artist).Msg("artist cache read failed")
		case ok:
			return albums, nil
		}

		// Read before the store so an insert landing in between is detected.
		if generation, err = s.cache.Generation(ctx, artist); err != nil {
			logging.WithContext(ctx).Warn().Err(err).Str("artist", artist).Msg("artist cache generation read failed")
			fill = false
		}
	}

	albums, err := s.store.AlbumsByArtist(ctx, artist)
	if err != nil {
		return nil, err
	}

	if fill && len(albums) > 0 {
		if err := s.cache.SetArtist(ctx, artist, generation, albums); err != nil {
			logging.WithContext(ctx).Warn().Err(err).Str("artist", artist).Msg("artist cache write failed")
		}
	}

	return albums, nil
}

// Add validates sub and persists it. A refused submission is reported as a
// *Rejection error; any other error is a storage failure.
func (s *service) Add(ctx context.Context, sub Submission) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}

	rejection, err := s.validator.Check(ctx, sub)
	if err != nil {
		return store.Album{}, err
	}
	if rejection != nil {
		return store.Album{}, rejection
	}

	// Check has already proven the year parses.
	year, _ := strconv.Atoi(*sub.Year)

	album, err := s.store.InsertAlbum(ctx, store.Album{
		Year:   year,
		Artist: *sub.Artist,
		Genre:  *sub.Genre,
		Title:  *sub.Album,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTitle) {
			return store.Album{}, reject(ReasonAlbumAlreadyExists, "an album with this title already exists")
		}
		return store.Album{}, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateArtist(ctx, album.Artist); err != nil {
			logging.WithContext(ctx).Warn().Err(err).Str("artist", album.Artist).Msg("artist cache invalidation failed")
		}
	}

	logging.WithContext(ctx).Info().
		Int64("album_id", album.ID).
		Str("album", album.Title).
		Str("artist", album.Artist).
		Msg("album saved")

	return album, nil
}
