package server

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// maxLineBytes bounds a single stdio request line.
const maxLineBytes = 4 * 1024 * 1024

// ServeStdio answers newline-delimited JSON-RPC requests until the input
// closes or the context is cancelled.
func ServeStdio(ctx context.Context, handler *Handler, in io.Reader, out io.Writer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := handler.Handle(ctx, line)
		if _, err := writer.Write(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	logger.Info("stdio input closed")
	return nil
}
