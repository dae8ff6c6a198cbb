package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nzoschke/spectrograph/pkg/visualize"
)

// callExport invokes a function of the visualize module object.
// Form values are passed through as arguments.
func callExport(c echo.Context) error {
	var args []any
	if params, err := c.FormParams(); err == nil {
		for k, v := range params {
			args = append(args, k, v)
		}
	}

	out, err := visualize.Call(c.Param("name"), args...)
	if errors.Is(err, visualize.ErrNotExported) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.String(http.StatusOK, fmt.Sprint(out))
}
