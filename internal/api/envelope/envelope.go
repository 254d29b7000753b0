// Package envelope defines the JSON reply shape shared by every
// endpoint and the mapping from service errors to caller-safe
// messages.
package envelope

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/signup"
)

// Envelope is the JSON shape every API call returns.
type Envelope struct {
	Status  string        `json:"status"` // OK, ERROR, ZERO_RESULTS
	Message string        `json:"message"`
	Results []interface{} `json:"results"`
}

// OK replies with the results, or ZERO_RESULTS when there are none.
func OK(c *gin.Context, results ...interface{}) {
	if results == nil {
		results = []interface{}{}
	}
	env := Envelope{Status: "OK", Message: "success", Results: results}
	if len(results) == 0 {
		env.Status = "ZERO_RESULTS"
		env.Message = "no data returned"
	}
	log.Printf("api %s returning %s: %s", c.Request.URL.Path, env.Status, env.Message)
	c.JSON(http.StatusOK, env)
}

// Error replies with an ERROR envelope carrying a caller-safe
// message.
func Error(c *gin.Context, status int, message string) {
	log.Printf("api %s returning ERROR: %s", c.Request.URL.Path, message)
	c.JSON(status, Envelope{Status: "ERROR", Message: message, Results: []interface{}{}})
}

// identifierError covers every way a claimed identifier can be
// refused. They all get the same generic public message per channel,
// so callers can't probe which identifiers are registered, rate
// limited, or denylisted.
func identifierError(err error) bool {
	return errors.Is(err, common.ErrInvalidIdentifier) ||
		errors.Is(err, common.ErrIdentifierTaken) ||
		errors.Is(err, common.ErrBlacklisted) ||
		errors.Is(err, common.ErrRateLimited)
}

// FailChannel maps an error from a single-channel verification call,
// using the channel's generic message for any identifier refusal.
func FailChannel(c *gin.Context, message string, err error) {
	if identifierError(err) {
		Error(c, http.StatusBadRequest, message)
		return
	}
	Fail(c, err)
}

// Fail maps a service error to its public envelope. Anything
// unrecognized is logged in full server-side and surfaced only as
// "system malfunction".
func Fail(c *gin.Context, err error) {
	var fieldErr *signup.FieldError
	field := ""
	if errors.As(err, &fieldErr) {
		field = fieldErr.Field
	}

	switch {
	case identifierError(err):
		Error(c, http.StatusBadRequest, fieldMessage(field, err))
	case errors.Is(err, common.ErrIncorrectCode):
		Error(c, http.StatusBadRequest, prefixField(field, "incorrect verification code"))
	case errors.Is(err, common.ErrUnknownTarget):
		Error(c, http.StatusBadRequest, "no such user or workgroup")
	case errors.Is(err, common.ErrNotFound):
		Error(c, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrNotMember):
		Error(c, http.StatusForbidden, "not a member")
	default:
		log.Printf("api %s failed: %v", c.Request.URL.Path, err)
		Error(c, http.StatusInternalServerError, "system malfunction")
	}
}

// fieldMessage picks the public message for a refused signup field. A
// username or password problem is safe to name precisely; contact
// channels stay generic.
func fieldMessage(field string, err error) string {
	switch field {
	case "username":
		if errors.Is(err, common.ErrIdentifierTaken) {
			return "username is taken"
		}
		return "please enter only letters and digits in your username between 3 and 12 chars"
	case "password":
		return "password must be at least 6 characters"
	case "phone":
		return "invalid phone number"
	case "xmpp":
		return "invalid xmpp address"
	default:
		return "invalid email address"
	}
}

func prefixField(field, message string) string {
	if field == "" {
		return message
	}
	return field + ": " + message
}
