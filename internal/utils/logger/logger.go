package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"replikeep/internal/app/server/config"
	"replikeep/internal/utils/logger/slogpretty"
)

// Option настраивает вывод логгера.
type Option func(*options)

type options struct {
	out  io.Writer
	file string
}

// WithOutput направляет записи в w вместо stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithFile дублирует записи в файл с ротацией. Пустой путь игнорируется.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// New создаёт логгер для окружения: local - цветной вывод с DEBUG,
// dev - JSON с DEBUG, prod - JSON с INFO.
func New(env string, opts ...Option) *slog.Logger {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	out := o.out
	if o.file != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}

	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = setupPrettySlog(out)
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

// Discard возвращает логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func setupPrettySlog(out io.Writer) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(out)

	return slog.New(handler)
}
