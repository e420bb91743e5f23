package prismcli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/calvinalkan/prismbuffer/buffer"
	"github.com/calvinalkan/prismbuffer/codec"

	flag "github.com/spf13/pflag"
)

// PushCmd reads a payload from stdin and pushes it onto the buffer at cfg's
// managed directory, with an optional explicit priority.
func PushCmd(cfg Config) *Command {
	flags := flag.NewFlagSet("push", flag.ContinueOnError)
	priority := flags.Uint64("priority", 0, "explicit priority (default: push-order counter)")

	return &Command{
		Flags: flags,
		Usage: "push [--priority N]",
		Short: "read a payload from stdin and push it onto the buffer",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			payload, err := io.ReadAll(o.In)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			opts := bufferOptions(cfg)

			if flags.Changed("priority") {
				fixed := *priority
				opts.PriorityFunc = func([]byte) uint64 { return fixed }
			}

			b, err := buffer.New(ctx, codec.Bytes{}, opts)
			if err != nil {
				return err
			}

			defer func() { _ = b.Close(ctx) }()

			return b.Push(ctx, payload)
		},
	}
}

// bufferOptions builds the Options the rest of prismcli's subcommands share,
// separated from openBuffer so push can layer a one-shot priority override
// on top without touching the shared construction path.
func bufferOptions(cfg Config) buffer.Options[[]byte] {
	opts := buffer.DefaultOptions[[]byte]()

	if cfg.DirectoryName != "" {
		opts.DirectoryName = cfg.DirectoryName
	}

	opts.ParentDirectory = cfg.ParentDirectory

	if cfg.MaxDiskBytes != 0 {
		opts.MaxDiskBytes = cfg.MaxDiskBytes
	}

	if cfg.MaxMemory != 0 {
		opts.MaxMemory = cfg.MaxMemory
	}

	opts.JitterLo = time.Duration(cfg.JitterLoMS) * time.Millisecond
	opts.JitterHi = time.Duration(cfg.JitterHiMS) * time.Millisecond

	return opts
}
