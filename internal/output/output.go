// Package output formats command results for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/martinsuchenak/hometier/internal/model"
)

// Table writes rows as aligned columns under an upper-case header
func Table(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Timestamp renders t for listings, "-" when unset
func Timestamp(t model.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// Date renders only the day part of t, "-" when unset
func Date(t model.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// Dash replaces an empty value with "-"
func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
