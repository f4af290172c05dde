package takematch

import (
	"github.com/takematch/takematch/pkg/takematch/generate"
	"github.com/takematch/takematch/pkg/takematch/match"
)

type Config struct {
	// Workers sizes the extraction pool; 0 means NumCPU-1.
	Workers int
	// Match carries the scoring tunables.
	Match match.Config
	// HistoryPath locates the batch run log; empty uses the default file,
	// DisableHistory turns the log off entirely.
	HistoryPath    string
	DisableHistory bool

	Logger   Logger
	Decoder  Decoder
	Lister   FileLister
	Progress func(generate.Progress)
}

type Option func(*Config)

func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

func WithMatchConfig(cfg match.Config) Option {
	return func(c *Config) { c.Match = cfg }
}

func WithHistoryPath(path string) Option {
	return func(c *Config) { c.HistoryPath = path }
}

func WithoutHistory() Option {
	return func(c *Config) { c.DisableHistory = true }
}

func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

func WithDecoder(d Decoder) Option {
	return func(c *Config) { c.Decoder = d }
}

func WithFileLister(l FileLister) Option {
	return func(c *Config) { c.Lister = l }
}

// WithProgress installs a batch progress callback, invoked off the caller's
// goroutine after every processed file.
func WithProgress(fn func(generate.Progress)) Option {
	return func(c *Config) { c.Progress = fn }
}

func defaultConfig() *Config {
	return &Config{
		Match: match.DefaultConfig(),
	}
}
