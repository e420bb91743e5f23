package prismcli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// StatsCmd prints an aggregate snapshot of buffer state.
func StatsCmd(cfg Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("stats", flag.ContinueOnError),
		Usage: "stats",
		Short: "print memory/disk byte counts and disk record count",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			b, err := openBuffer(ctx, cfg)
			if err != nil {
				return err
			}

			defer func() { _ = b.Close(ctx) }()

			s, err := b.Stats(ctx)
			if err != nil {
				return err
			}

			memory, _, err := b.Len(ctx)
			if err != nil {
				return err
			}

			o.Printf("memory_items=%d memory_bytes=%d disk_items=%d disk_bytes=%d\n",
				memory, s.MemoryBytes, s.DiskRecords, s.DiskBytes)

			return nil
		},
	}
}
