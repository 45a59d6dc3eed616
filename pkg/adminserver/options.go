package adminserver

import (
	"github.com/c2h5oh/datasize"

	"github.com/voluzi/ecsadmin/pkg/statscollector"
)

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 9090
	DefaultStaticDir   = "etc"
	DefaultGzipMinSize = "4KB"
)

func defaultOptions() *Options {
	return &Options{
		Host:        DefaultHost,
		Port:        DefaultPort,
		StaticDir:   DefaultStaticDir,
		GzipMinSize: datasize.MustParseString(DefaultGzipMinSize),
	}
}

type Options struct {
	Host         string
	Port         int
	StaticDir    string
	SettingsFile string
	GzipMinSize  datasize.ByteSize
	Collector    []statscollector.Option
}

type Option func(*Options)

func WithHost(s string) Option {
	return func(opts *Options) {
		opts.Host = s
	}
}

func WithPort(v int) Option {
	return func(opts *Options) {
		opts.Port = v
	}
}

// WithStaticDir sets the directory dashboard files are served from. An empty
// string disables static file serving.
func WithStaticDir(path string) Option {
	return func(opts *Options) {
		opts.StaticDir = path
	}
}

// WithSettingsFile sets a YAML or TOML file whose profiling settings are
// applied on start and whenever it changes.
func WithSettingsFile(path string) Option {
	return func(opts *Options) {
		opts.SettingsFile = path
	}
}

// WithGzipMinSize sets the smallest snapshot body that is gzip-compressed for clients accepting it.
func WithGzipMinSize(size string) Option {
	return func(opts *Options) {
		opts.GzipMinSize = datasize.MustParseString(size)
	}
}

// WithCollectorOptions passes options through to the stats collector.
func WithCollectorOptions(o ...statscollector.Option) Option {
	return func(opts *Options) {
		opts.Collector = append(opts.Collector, o...)
	}
}
