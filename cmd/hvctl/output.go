package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl/pkg/psparse"
)

const formatOptions = `table or json`

var formatFlag = cli.StringFlag{
	Name:  "format, f",
	Value: "table",
	Usage: `select one of: ` + formatOptions,
}

func isJSON(c *cli.Context) (bool, error) {
	switch f := c.String("format"); f {
	case "", "table":
		return false, nil
	case "json":
		return true, nil
	default:
		return false, fmt.Errorf("invalid format option %q, select one of: %s", f, formatOptions)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printBlocks writes blocks as `key : value` lists separated by blank lines,
// or as a JSON array of objects.
func printBlocks(c *cli.Context, blocks ...*psparse.Block) error {
	w := c.App.Writer
	asJSON, err := isJSON(c)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, lo.Map(blocks, func(b *psparse.Block, _ int) map[string]string { return b.Map() }))
	}
	for i, b := range blocks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
		for _, k := range b.Keys() {
			fmt.Fprintf(tw, "%s\t: %s\n", k, b.Value(k))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// printTable writes rows under header, or the rows as JSON objects keyed by
// the lower-cased header.
func printTable(c *cli.Context, header []string, rows [][]string) error {
	w := c.App.Writer
	asJSON, err := isJSON(c)
	if err != nil {
		return err
	}
	if asJSON {
		objs := lo.Map(rows, func(r []string, _ int) map[string]string {
			m := make(map[string]string, len(header))
			for i, h := range header {
				if i < len(r) {
					m[strings.ToLower(h)] = r[i]
				}
			}
			return m
		})
		return writeJSON(w, objs)
	}
	tw := tabwriter.NewWriter(w, 6, 4, 3, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// mapRows turns m into sorted two column rows.
func mapRows(m map[string]string) [][]string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) []string { return []string{k, m[k]} })
}
