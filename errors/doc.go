/*
Package errors provides semantic error types for the manufacturing store.

The package distinguishes the three failure classes the sync layer cares
about: validation errors (malformed record shape, with field-level detail),
transport errors (a failed remote call, wrapping the remote's message), and
event errors (a single bad realtime change event, isolated from the rest of
the feed). Each typed error matches its sentinel through errors.Is:

	if errors.IsValidationError(err) {
	    // show inline field feedback
	}

	var verr *errors.ValidationError
	if stderrors.As(err, &verr) {
	    fmt.Println(verr.Field, verr.Message)
	}
*/
package errors
