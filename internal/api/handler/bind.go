package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const maxBodyBytes = 1 << 20

// bindStrict decodes a JSON body into dst, rejecting unknown fields and
// trailing data, then runs the echo validator.
func bindStrict(c echo.Context, dst any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return echo.NewHTTPError(http.StatusBadRequest, "request body is required")
		}
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
	}
	if dec.More() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload: unexpected trailing data")
	}

	if c.Echo().Validator != nil {
		if err := c.Validate(dst); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return nil
}
