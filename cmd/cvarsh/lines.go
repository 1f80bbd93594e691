package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/fatih/color"
)

// runLines executes console lines read from r, one per line, writing
// output to w. A line starting with '#' is a comment.
func runLines(s *session, r io.Reader, w io.Writer) error {
	prompt := color.New(color.FgCyan)
	failed := color.New(color.FgRed)

	s.flush(w)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		prompt.Fprintf(w, "] %s\n", line)
		err := s.execute(line)
		s.flush(w)
		if err != nil {
			failed.Fprintf(w, "! %v\n", err)
		}
	}
	return sc.Err()
}
