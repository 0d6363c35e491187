package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DecodePayload strictly decodes a JSON request body into dest. Unknown
// fields and trailing data are rejected; an empty body is an error unless
// allowEmpty is set.
func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		return errors.New("unsupported content type")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dest)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && allowEmpty:
	default:
		return err
	}

	if dec.More() {
		return errors.New("extra data in request body")
	}
	return nil
}
