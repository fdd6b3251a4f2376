package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	dupfind "github.com/mattkeenan/dupfind/pkg"
)

// palette holds the colours of the human format for one writer
type palette struct {
	bold, cyan, yellow, green, red, gray *color.Color
}

func newPalette(w io.Writer) *palette {
	p := &palette{
		bold:   color.New(color.Bold),
		cyan:   color.New(color.FgCyan),
		yellow: color.New(color.FgYellow),
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		gray:   color.New(color.FgHiBlack),
	}

	enable := !color.NoColor && isTerminal(w)
	for _, c := range []*color.Color{p.bold, p.cyan, p.yellow, p.green, p.red, p.gray} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(fileDescriptor)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// EncodeHuman writes a coloured summary for terminals. Colour is only used
// when w is a terminal.
func EncodeHuman(w io.Writer, r *Report) error {
	p := newPalette(w)
	ew := &errWriter{w: w}

	state := p.green.Sprint("complete")
	if !r.Complete {
		state = p.red.Sprint("incomplete")
	}
	ew.printf("%s %s (%s, %s)\n", p.bold.Sprint("Duplicates in"), r.Root, r.Algorithm, state)
	ew.printf("%s groups, %s files, %s reclaimable, %s read\n",
		humanize.Comma(r.Stats.DuplicateGroups),
		humanize.Comma(r.Stats.DuplicateFiles),
		humanize.IBytes(uint64(r.Stats.ReclaimableBytes)),
		humanize.IBytes(uint64(r.Stats.BytesRead)))
	ew.printf("%s\n", p.gray.Sprintf("scan %s finished %s", r.ScanID, humanize.Time(r.FinishedAt)))

	groups := r.Groups()
	if len(groups) == 0 {
		ew.printf("\nNo duplicate files found.\n")
	}
	for _, g := range groups {
		ew.printf("\n%s %s\n",
			p.yellow.Sprintf("%s x %d", humanize.IBytes(uint64(g.Size)), len(g.Paths)),
			p.cyan.Sprint(dupfind.ShortDigest(g.Digest)))
		for _, path := range g.Paths {
			ew.printf("    %s\n", path)
		}
	}

	if len(r.Warnings) > 0 {
		ew.printf("\n%s\n", p.red.Sprintf("%d paths skipped:", len(r.Warnings)))
		for _, warning := range r.Warnings {
			ew.printf("    %s %s: %s\n", p.gray.Sprintf("[%s]", warning.Stage), warning.Path, warning.Reason)
		}
	}
	return ew.err
}

// errWriter keeps the first write error and skips later writes
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
