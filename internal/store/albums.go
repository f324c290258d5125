package store

import (
	"context"
	"database/sql"
	"errors"
)

var (
	// ErrAlbumNotFound signals that no album carries the requested title.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrDuplicateTitle is returned by InsertAlbum when the title index rejects the row.
	ErrDuplicateTitle = errors.New("album title already exists")
)

// Album models a single catalogue entry.
type Album struct {
	ID     int64  `json:"id"`
	Year   int    `json:"year"`
	Artist string `json:"artist"`
	Genre  string `json:"genre"`
	Title  string `json:"album"`
}

// AlbumsByArtist lists every album whose artist matches exactly. No match
// yields an empty slice and a nil error.
func (s *Store) AlbumsByArtist(ctx context.Context, artist string) ([]Album, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, year, artist, genre, album
		FROM album
		WHERE artist = ?
		ORDER BY id ASC
	`), artist)
	if err != nil {
		return nil, storageErr("select albums", err)
	}
	defer rows.Close()

	albums := []Album{}
	for rows.Next() {
		a, err := scanAlbumRow(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate albums", err)
	}

	return albums, nil
}

// AlbumByTitle returns the first album with the given title.
func (s *Store) AlbumByTitle(ctx context.Context, title string) (Album, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, year, artist, genre, album
		FROM album
		WHERE album = ?
		ORDER BY id ASC
		LIMIT 1
	`), title)

	album, err := scanAlbumRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrAlbumNotFound
		}
		return Album{}, err
	}
	return album, nil
}

// InsertAlbum persists album in a single transaction and returns it with the
// identifier assigned by the database.
func (s *Store) InsertAlbum(ctx context.Context, album Album) (Album, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Album{}, storageErr("begin tx", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO album (year, artist, genre, album)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), album.Year, album.Artist, album.Genre, album.Title).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return Album{}, ErrDuplicateTitle
		}
		return Album{}, storageErr("insert album", err)
	}

	if err := tx.Commit(); err != nil {
		return Album{}, storageErr("commit tx", err)
	}
	tx = nil

	album.ID = id
	return album, nil
}

type albumScanner interface {
	Scan(dest ...any) error
}

func scanAlbumRow(scanner albumScanner) (Album, error) {
	var a Album
	if err := scanner.Scan(&a.ID, &a.Year, &a.Artist, &a.Genre, &a.Title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, err
		}
		return Album{}, storageErr("scan album", err)
	}
	return a, nil
}
