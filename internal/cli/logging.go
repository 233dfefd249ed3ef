package cli

import (
	"fmt"
	"io"
	"log/slog"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, apperr.InvalidConfig(fmt.Sprintf("unsupported log level %q: use debug, info, warn or error", level))
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, apperr.InvalidConfig(fmt.Sprintf("unsupported log format %q: use 'text' or 'json'", format))
}
