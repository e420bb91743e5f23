package prismcli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// FsckCmd reconciles the catalog against the managed directory's blob
// files and reports invariant-1 violations: disk records with no blob, and
// blob files with no catalog record.
func FsckCmd(cfg Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("fsck", flag.ContinueOnError),
		Usage: "fsck",
		Short: "reconcile the catalog against the blob directory",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			b, err := openBuffer(ctx, cfg)
			if err != nil {
				return err
			}

			defer func() { _ = b.Close(ctx) }()

			records, err := b.Records(ctx)
			if err != nil {
				return err
			}

			blobNames, err := b.BlobFileNames()
			if err != nil {
				return err
			}

			onDiskHashes := make(map[string]bool, len(records))

			violations := 0

			for _, r := range records {
				if !r.OnDisk {
					continue
				}

				onDiskHashes[r.Hash] = true

				if !b.BlobExists(r.Hash) {
					o.Printf("missing blob: record %d hash=%s\n", r.ID, r.Hash)

					violations++
				}
			}

			for _, name := range blobNames {
				if !onDiskHashes[name] {
					o.Printf("orphan blob file: %s\n", name)

					violations++
				}
			}

			if violations == 0 {
				o.Println("ok: no invariant-1 violations found")
			}

			return nil
		},
	}
}
