package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// formatScenesText formats CLIScene results as aligned columns.
func formatScenesText(w io.Writer, scenes []CLIScene) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tPATH")
	for _, s := range scenes {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%s\n", s.ID, s.Name, s.Width, s.Height, s.Path)
	}
	tw.Flush()
}

// formatBandsText formats CLIBand results as aligned columns.
func formatBandsText(w io.Writer, bands []CLIBand) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BAND\tROLE\tTYPE\tMIN\tMAX\tMEAN\tSTD\tPATH")
	for _, b := range bands {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.BandNumber, b.Role, b.DataType,
			formatFloat(b.Min), formatFloat(b.Max), formatFloat(b.Mean), formatFloat(b.StdDev),
			b.Path)
	}
	tw.Flush()
}

// formatProductsText formats CLIProduct results as aligned columns.
func formatProductsText(w io.Writer, products []CLIProduct) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tRANGE\tINPUTS\tPNG")
	for _, p := range products {
		rng := "-"
		if p.Min != nil && p.Max != nil {
			rng = formatFloat(*p.Min) + ".." + formatFloat(*p.Max)
		}
		inputs := "-"
		if len(p.Inputs) > 0 {
			inputs = strings.Join(p.Inputs, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Kind, rng, inputs, p.PNGPath)
	}
	tw.Flush()
}

// outputResultText writes a CLIResult in human-readable text.
func outputResultText(result CLIResult) error {
	switch r := result.Results.(type) {
	case []CLIScene:
		formatScenesText(stdout, r)
	case CLISceneDetail:
		formatScenesText(stdout, []CLIScene{r.Scene})
		fmt.Fprintln(stdout)
		formatBandsText(stdout, r.Bands)
	case []CLIBand:
		formatBandsText(stdout, r)
	case []CLIProduct:
		if len(r) == 0 {
			fmt.Fprintln(stdout, "No products.")
			return nil
		}
		formatProductsText(stdout, r)
	default:
		fmt.Fprintf(stdout, "%v\n", r)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
