package api

// bearerSecurity marks an operation as requiring an access token.
var bearerSecurity = []map[string][]string{{"bearer": {}}}

// fail converts a service error into a huma status error.
func fail(err error) error {
	return toAPIError(err)
}

// validate runs struct tag validation on a request body.
func (s *Server) validate(body any) error {
	if err := s.validator.Validate(body); err != nil {
		return fail(err)
	}
	return nil
}
