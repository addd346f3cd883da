package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cbf/pkg/cbf"
)

func inspectCmd() *cli.Command {
	var (
		path      string
		logLevel  string
		logFormat string
	)
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the schema and batches of a .cbf buffer",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .cbf file",
				Destination: &path,
				Required:    true,
			},
		}, loggingFlags(&logLevel, &logFormat)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			log := newLogger(c, logLevel, logFormat)

			f, err := cbf.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer func() { _ = f.Close() }()

			s, err := f.Stream()
			if err != nil {
				return err
			}
			schema := s.Schema()

			fmt.Printf("File: %s\n", path)
			fmt.Printf("CBF v%d.%d | size=%d | fields=%d\n",
				cbf.CurrentMajor, cbf.CurrentMinor, len(f.Bytes()), schema.NumFields())
			fmt.Println()
			fmt.Println("Schema:")
			for i := 0; i < schema.NumFields(); i++ {
				printField(schema.Field(i), "  ")
			}

			batches := 0
			rows := 0
			nulls := make(map[string]int)
			for s.Next() {
				b := s.Batch()
				batches++
				rows += b.NumRows()
				for i := 0; i < b.NumCols(); i++ {
					col := b.ColumnAt(i)
					nulls[col.Field().Name] += col.NullCount()
				}
			}
			if err := s.Err(); err != nil {
				return err
			}

			fmt.Println()
			fmt.Printf("Batches: %d | rows: %d\n", batches, rows)
			for i := 0; i < schema.NumFields(); i++ {
				name := schema.Field(i).Name
				fmt.Printf("  %-20s nulls=%d\n", name, nulls[name])
			}

			log.Debug("inspect complete", "batches", batches, "rows", rows)
			return nil
		},
	}
}

func printField(f cbf.Field, indent string) {
	var attrs []string
	if f.Nullable {
		attrs = append(attrs, "nullable")
	}
	if f.Tag != "" {
		attrs = append(attrs, "tag="+f.Tag)
	}
	suffix := ""
	if len(attrs) > 0 {
		suffix = " (" + strings.Join(attrs, ", ") + ")"
	}
	fmt.Printf("%s%-20s %s%s\n", indent, f.Name, f.Type, suffix)
	for _, c := range f.Children {
		printField(c, indent+"  ")
	}
}
