package albums

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"albumserver/internal/store"
)

const (
	minYear = 0
	maxYear = 2200
)

// Submission is a proposed album as received from a client. A nil field was
// not supplied at all.
type Submission struct {
	Year   *string
	Artist *string
	Genre  *string
	Album  *string
}

// TitleLookup finds an existing album by its title.
type TitleLookup interface {
	AlbumByTitle(ctx context.Context, title string) (store.Album, error)
}

// Validator decides whether a submission may be inserted.
type Validator struct {
	titles TitleLookup
}

// NewValidator returns a Validator that checks duplicates against titles.
func NewValidator(titles TitleLookup) *Validator {
	return &Validator{titles: titles}
}

// Check runs the submission checks in order and stops at the first failure.
// A nil Rejection and nil error means the submission may be inserted. The
// error is only set when the duplicate lookup itself failed.
func (v *Validator) Check(ctx context.Context, sub Submission) (*Rejection, error) {
	if err := validation.ValidateStruct(&sub,
		validation.Field(&sub.Year, validation.NotNil),
		validation.Field(&sub.Artist, validation.NotNil),
		validation.Field(&sub.Genre, validation.NotNil),
		validation.Field(&sub.Album, validation.NotNil),
	); err != nil {
		return reject(ReasonMalformedInput, "submission must include year, artist, genre and album"), nil
	}

	_, err := v.titles.AlbumByTitle(ctx, *sub.Album)
	switch {
	case err == nil:
		return reject(ReasonAlbumAlreadyExists, "an album with this title already exists"), nil
	case !errors.Is(err, store.ErrAlbumNotFound):
		return nil, fmt.Errorf("lookup album title: %w", err)
	}

	if err := validation.Validate(*sub.Year, validation.By(yearDigits)); err != nil {
		return asRejection(err), nil
	}

	year, err := strconv.Atoi(*sub.Year)
	if err != nil {
		return reject(ReasonInvalidYear, "album year is too large"), nil
	}
	if err := validation.Validate(year,
		validation.Min(minYear).ErrorObject(ruleError(ReasonInvalidYear, "album year is out of range")),
		validation.Max(maxYear).ErrorObject(ruleError(ReasonInvalidYear, "album year is out of range")),
	); err != nil {
		return asRejection(err), nil
	}

	if err := validation.Validate(*sub.Artist, notAllDigits(ReasonInvalidArtist, "artist name consists only of digits")); err != nil {
		return asRejection(err), nil
	}
	if err := validation.Validate(*sub.Genre, notAllDigits(ReasonInvalidGenre, "genre name consists only of digits")); err != nil {
		return asRejection(err), nil
	}
	// Title shape failures share the genre reason code.
	if err := validation.Validate(*sub.Album, notAllDigits(ReasonInvalidGenre, "album title consists only of digits")); err != nil {
		return asRejection(err), nil
	}

	return nil, nil
}

func yearDigits(value interface{}) error {
	s, _ := value.(string)
	if !allDigits(s) {
		return ruleError(ReasonInvalidYear, "album year is not a number")
	}
	return nil
}

func notAllDigits(reason Reason, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if allDigits(s) {
			return ruleError(reason, message)
		}
		return nil
	})
}

// allDigits reports whether s is non-empty and made only of ASCII digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
