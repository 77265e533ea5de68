package pwrcli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"sigs.k8s.io/yaml"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	accentColor  = color.New(color.FgCyan)
)

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(w io.Writer, data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// render writes data in the selected output format. table draws the
// human-readable form.
func render(w io.Writer, data interface{}, table func(tw *tabwriter.Writer)) error {
	switch strings.ToLower(outputFormat) {
	case "json":
		return printJSON(w, data)
	case "yaml":
		return printYAML(w, data)
	case "table", "":
		tw := newTable(w)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

func printError(w io.Writer, err error) {
	errorColor.Fprint(w, "Error: ")
	fmt.Fprintln(w, apierr.UserMessage(err))
	var transport *apierr.TransportError
	if verbose && errors.As(err, &transport) {
		fmt.Fprintf(w, "  cause: %s\n", transport.Diagnostic())
	}
}

func boolMark(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
