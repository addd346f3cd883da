package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cbf/pkg/tabular"
)

func convertCmd() *cli.Command {
	var (
		inPath    string
		outPath   string
		logLevel  string
		logFormat string
	)
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert a CSV file (with header row) into a .cbf buffer",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "path to input .csv file",
				Destination: &inPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "path to output .cbf file",
				Destination: &outPath,
				Required:    true,
			},
		}, loggingFlags(&logLevel, &logFormat)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			log := newLogger(c, logLevel, logFormat)

			tbl, err := readCSV(inPath)
			if err != nil {
				return err
			}
			buf, err := tabular.EncodeSource(tbl)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, buf, 0o644); err != nil {
				return err
			}
			log.Info("converted", "in", inPath, "out", outPath,
				"rows", tbl.NumRows(), "bytes", len(buf))
			return nil
		},
	}
}

func readCSV(path string) (*tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("cbf: %s: empty csv", path)
	}
	header := records[0]
	cols := make([][]any, len(header))
	for i := range cols {
		cols[i] = make([]any, len(records)-1)
	}
	for r, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("cbf: %s: row %d has %d cells, want %d", path, r+1, len(rec), len(header))
		}
		for i, cell := range rec {
			cols[i][r] = parseCell(cell)
		}
	}
	for i := range cols {
		normalizeColumn(cols[i])
	}
	return tabular.FromColumns(header, cols)
}

// normalizeColumn widens mixed cells to one element type per column:
// any string makes the column utf8, otherwise any float makes it float64.
func normalizeColumn(col []any) {
	hasString, hasFloat := false, false
	for _, v := range col {
		switch v.(type) {
		case string:
			hasString = true
		case float64:
			hasFloat = true
		}
	}
	for i, v := range col {
		if v == nil {
			continue
		}
		switch x := v.(type) {
		case int64:
			if hasString {
				col[i] = strconv.FormatInt(x, 10)
			} else if hasFloat {
				col[i] = float64(x)
			}
		case float64:
			if hasString {
				col[i] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		}
	}
}

// parseCell maps a CSV cell to the narrowest supported value: empty cells
// become nulls, then int64, then float64, then string.
func parseCell(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		return x
	}
	return s
}
