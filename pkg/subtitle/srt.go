package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteSRT renders the utterances as SubRip cues, numbered from 1 in the
// order the service returned them
func (r *Result) WriteSRT(w io.Writer) error {
	_, err := r.WriteCues(w, 1)
	return err
}

// WriteCues renders the utterances as SubRip cues numbered from first and
// returns the number of the next cue
func (r *Result) WriteCues(w io.Writer, first int) (int, error) {
	bw := bufio.NewWriter(w)
	n := first
	for _, u := range r.Utterances {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			n, srtTimestamp(u.StartTime), srtTimestamp(u.EndTime), strings.TrimSpace(u.Text))
		n++
	}
	return n, bw.Flush()
}

// srtTimestamp formats milliseconds as HH:MM:SS,mmm
func srtTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
