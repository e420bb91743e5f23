package prismcli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/prismbuffer/codec"

	flag "github.com/spf13/pflag"
)

// PopCmd pops the highest-priority item and writes its payload to stdout.
func PopCmd(cfg Config) *Command {
	flags := flag.NewFlagSet("pop", flag.ContinueOnError)
	block := flags.Bool("block", false, "wait for an item if the buffer is empty")

	return &Command{
		Flags: flags,
		Usage: "pop [--block]",
		Short: "pop the highest-priority item and print it to stdout",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			b, err := openBuffer(ctx, cfg)
			if err != nil {
				return err
			}

			defer func() { _ = b.Close(ctx) }()

			item, err := b.Pop(ctx, *block)
			if err != nil {
				return err
			}

			if !(codec.Bytes{}).IsInitialized(item) {
				o.ErrPrintln("buffer empty")

				return nil
			}

			_, err = fmt.Fprint(o.Out, string(item))

			return err
		},
	}
}
