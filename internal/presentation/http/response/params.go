package response

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gestorventas/deposito/pkg/errorbank"
)

// PathID parses a positive integer path parameter.
func PathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.InvalidArgument("invalid "+name, errorbank.WithDetail("param", name))
	}
	return id, nil
}
