package prismcli

import (
	"context"

	"github.com/calvinalkan/prismbuffer/buffer"
	"github.com/calvinalkan/prismbuffer/codec"
)

// openBuffer builds a []byte-valued Buffer from cfg, applying the package's
// documented defaults for anything cfg leaves zero.
func openBuffer(ctx context.Context, cfg Config) (*buffer.Buffer[[]byte], error) {
	return buffer.New(ctx, codec.Bytes{}, bufferOptions(cfg))
}
