package transport

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decode binds a JSON body and validates it with the struct tags.
func (s *Server) decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if err := s.validate.Struct(v); err != nil {
		return badRequest("%v", err)
	}
	return nil
}
