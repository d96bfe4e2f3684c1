package google

import (
	"fmt"
	"strings"
)

// parseIDColumn collects the non-empty cells of a single-column values matrix
// (as returned by the Sheets API), skipping the header cell.
func parseIDColumn(values [][]interface{}) map[string]struct{} {
	ids := make(map[string]struct{}, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.EqualFold(v, "id") {
			continue
		}
		ids[v] = struct{}{}
	}
	return ids
}
