package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/simp-lee/memorial/internal/client"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, outputTable, outputJSON)
	}
}

func printObituaryTable(w io.Writer, items []client.Obituary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBORN\tDIED")
	for _, o := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID, o.FullName, o.DateOfBirth, o.DateOfDeath)
	}
	return tw.Flush()
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// describe appends server field errors to err's message.
func describe(err error) error {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) || len(apiErr.FieldErrors) == 0 {
		return err
	}
	parts := make([]string, 0, len(apiErr.FieldErrors))
	for _, k := range slices.Sorted(maps.Keys(apiErr.FieldErrors)) {
		parts = append(parts, k+": "+apiErr.FieldErrors[k])
	}
	return fmt.Errorf("%w (%s)", err, strings.Join(parts, "; "))
}
