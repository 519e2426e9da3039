package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page is an offset window over a newest-first listing.
type Page struct {
	Offset int
	Limit  int
}

// ParsePage reads the offset and limit query parameters. A missing limit
// falls back to defaultLimit; any limit outside [1, maxLimit] is rejected.
func ParsePage(c *gin.Context, defaultLimit, maxLimit int) (Page, error) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return Page{}, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limit := defaultLimit
	if raw, ok := c.GetQuery("limit"); ok {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return Page{}, fmt.Errorf("invalid limit parameter: must be between 1 and %d", maxLimit)
		}
	}

	return Page{Offset: offset, Limit: limit}, nil
}
