package albums

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Reason identifies why a submission was refused.
type Reason string

const (
	ReasonMalformedInput     Reason = "MalformedInput"
	ReasonAlbumAlreadyExists Reason = "AlbumAlreadyExists"
	ReasonInvalidYear        Reason = "InvalidYear"
	ReasonInvalidArtist      Reason = "InvalidArtist"
	ReasonInvalidGenre       Reason = "InvalidGenre"
)

// Rejection is the single reason a submission could not be saved. It is
// returned as an error by Service.Add and recovered with errors.As.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s - %s", r.Reason, r.Message)
}

func reject(reason Reason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// ruleError builds an ozzo validation error whose code is the rejection reason.
func ruleError(reason Reason, message string) validation.Error {
	return validation.NewError(string(reason), message)
}

// asRejection converts a failed ozzo rule into a Rejection.
func asRejection(err error) *Rejection {
	var verr validation.Error
	if errors.As(err, &verr) {
		return reject(Reason(verr.Code()), verr.Message())
	}
	return reject(ReasonMalformedInput, err.Error())
}
