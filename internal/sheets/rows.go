package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// FindRow returns the 1-based sheet row whose first column equals id, or 0.
func FindRow(column [][]any, id int64) int {
	want := formatID(id)
	for i, row := range column {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}
