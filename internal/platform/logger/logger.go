package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Services and handlers take
// *slog.Logger by injection; nothing reads slog's global default.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
