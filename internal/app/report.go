package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JakeFAU/remotefiles/internal/retrieval"
)

// TableReporter prints the configured entries as an aligned table.
type TableReporter struct {
	out io.Writer
}

// NewTableReporter returns a reporter writing to out.
func NewTableReporter(out io.Writer) *TableReporter {
	return &TableReporter{out: out}
}

// Report implements retrieval.Reporter.
func (r *TableReporter) Report(entries []retrieval.Entry) error {
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSOURCE\tLOCAL FILE PATH")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, e.Source, e.LocalFilePath)
	}
	return tw.Flush()
}

// WritePlan prints the outcome of a dry run as an aligned table.
func WritePlan(out io.Writer, planned []retrieval.Planned) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSOURCE\tURL\tTOKEN VAR\tTOKEN SET\tLOCAL FILE PATH")
	for i, p := range planned {
		set := "no"
		if p.TokenSet {
			set = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, p.Source, p.TranslatedURL, p.TokenVar, set, p.LocalFilePath)
	}
	return tw.Flush()
}
