package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const maxBodySize = 64 << 10

// bindStrictJSON decodes the body into obj rejecting unknown fields and
// trailing data, then runs the binding validators. An empty body decodes to
// the zero value so that optional-only requests accept it.
func bindStrictJSON(c *gin.Context, obj any) error {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}

	return binding.Validator.ValidateStruct(obj)
}
