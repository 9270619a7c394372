package ordo

import (
	"fmt"
	"io"
)

// WriteText renders days one per line as
//
//	date|rank|color|*|name|note
//
// where the fourth column is "*" for obligatory days and "-" otherwise.
func WriteText(w io.Writer, days []Day) error {
	for _, d := range days {
		mark := "-"
		if d.IsObligatory {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%s|%s|%s|%s|%s|%s\n", d.Date, d.Rank, d.Color, mark, d.Name, d.Note); err != nil {
			return err
		}
	}
	return nil
}
