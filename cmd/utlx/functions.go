package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/grauwen/utl-x-sub015/pkg/ext"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/stdlib"
)

func cmdFunctions(args []string, w io.Writer) int {
	fs := flag.NewFlagSet("functions", flag.ContinueOnError)
	format := fs.String("format", "text", "output format: text, json or yaml")
	all := fs.Bool("all", false, "include the optional extension packs")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	reg := stdlib.Default()
	if *all {
		var err error
		if reg, err = ext.Build(reg, ext.All()...); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			return 1
		}
	}

	if err := writeCatalog(w, *format, reg.Catalog()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}
	return 0
}

func writeCatalog(w io.Writer, format string, entries []functions.Entry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCATEGORY\tARGS\tDESCRIPTION")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Category, arity(e), e.Description)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown format %q, expected text, json or yaml", format)
}

func arity(e functions.Entry) string {
	d := functions.Def{MinArgs: e.MinArgs, MaxArgs: e.MaxArgs}
	return d.ArityString()
}
