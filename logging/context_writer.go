package logging

import (
	"context"
	"io"
)

type contextKey string

const outputWriterKey contextKey = "pretty_output_writer"

// GetWriter returns the pretty output writer attached to ctx, or the global
// output when there is none.
func GetWriter(ctx context.Context) io.Writer {
	if ctx != nil {
		if writer, ok := ctx.Value(outputWriterKey).(io.Writer); ok && writer != nil {
			return writer
		}
	}
	return GetGlobalOutput()
}

// WithWriter attaches a pretty output writer to ctx. Commands use it to send
// progress lines to the command's output stream.
func WithWriter(ctx context.Context, writer io.Writer) context.Context {
	return context.WithValue(ctx, outputWriterKey, writer)
}
