package prismcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/prismbuffer/buffer"
)

// InspectCmd opens an interactive, liner-backed REPL for browsing catalog
// records ordered by priority.
func InspectCmd(cfg Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("inspect", flag.ContinueOnError),
		Usage: "inspect",
		Short: "interactively browse catalog records ordered by priority",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			b, err := openBuffer(ctx, cfg)
			if err != nil {
				return err
			}

			defer func() { _ = b.Close(ctx) }()

			line := liner.NewLiner()
			defer func() { _ = line.Close() }()

			line.SetCtrlCAborts(true)

			o.Println("prismctl inspect - type 'list', 'count', or 'quit'")

			for {
				input, promptErr := line.Prompt("prismctl> ")
				if promptErr != nil {
					if errors.Is(promptErr, liner.ErrPromptAborted) || errors.Is(promptErr, io.EOF) {
						return nil
					}

					return fmt.Errorf("read input: %w", promptErr)
				}

				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}

				line.AppendHistory(input)

				switch input {
				case "quit", "exit":
					return nil
				case "list":
					err := printRecords(ctx, o, b)
					if err != nil {
						return err
					}
				case "count":
					memory, disk, countErr := b.Len(ctx)
					if countErr != nil {
						return countErr
					}

					o.Printf("memory=%d disk=%d\n", memory, disk)
				default:
					o.Println("unknown command:", input)
				}
			}
		},
	}
}

func printRecords(ctx context.Context, o *IO, b *buffer.Buffer[[]byte]) error {
	records, err := b.Records(ctx)
	if err != nil {
		return err
	}

	for _, r := range records {
		tier := "memory"
		if r.OnDisk {
			tier = "disk"
		}

		o.Printf("%-8d priority=%-12d size=%-8d tier=%-6s hash=%s\n", r.ID, r.Priority, r.Size, tier, r.Hash)
	}

	return nil
}
