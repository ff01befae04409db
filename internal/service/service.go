// Package service holds the business rules of the hub.
//
//	Handler (HTTP)  →  Service (rules, validation)  →  Repository / BlobStore
//
// Services take primitives and typed inputs, never *http.Request, and return
// *apperror.AppError values the handler layer maps to status codes.
//
// Failure policy, applied the same way everywhere:
//   - writes surface apperror.ErrStoreUnavailable when the store fails;
//   - list reads degrade to an empty collection and log at Warn.
//
// Ownership: a Resource created by an authenticated caller belongs to that
// caller. Only the owner may update, delete or (when private) download it.
// Anonymous resources have no owner and are always public.
package service

import (
	"time"

	"github.com/sakif/resource-hub/internal/apperror"
)

const dateLayout = "2006-01-02"

// writeFailure classifies an error from a write against a store. Errors that
// already carry a classification (Conflict, NotFound, Validation) pass through.
func writeFailure(op string, err error) error {
	if apperror.IsClassified(err) {
		return err
	}
	return apperror.StoreUnavailable(op, err)
}

// clock is swapped in tests.
type clock func() time.Time

func (c clock) today() string {
	return c().UTC().Format(dateLayout)
}
