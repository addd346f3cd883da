package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cbf/pkg/cbf"
)

func catCmd() *cli.Command {
	var (
		path      string
		limit     int64
		logLevel  string
		logFormat string
	)
	return &cli.Command{
		Name:  "cat",
		Usage: "Print the rows of a .cbf buffer as JSON lines",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .cbf file",
				Destination: &path,
				Required:    true,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum rows to print (-1 for all)",
				Value:       -1,
				Destination: &limit,
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

			out := bufio.NewWriter(os.Stdout)
			defer func() { _ = out.Flush() }()
			enc := json.NewEncoder(out)

			printed := int64(0)
			for s.Next() {
				b := s.Batch()
				for r := 0; r < b.NumRows(); r++ {
					if limit >= 0 && printed >= limit {
						return s.Err()
					}
					row := make(map[string]any, schema.NumFields())
					for i := 0; i < b.NumCols(); i++ {
						row[schema.Field(i).Name] = b.ColumnAt(i).Value(r)
					}
					if err := enc.Encode(row); err != nil {
						return err
					}
					printed++
				}
			}
			if err := s.Err(); err != nil {
				return err
			}
			log.Debug("cat complete", "rows", printed)
			return nil
		},
	}
}
