package utils

import (
	"log"
	"os"
)

// LoggerConfig controls where and how the application logger writes.
type LoggerConfig struct {
	// Output stream (os.Stdout, a file, ...)
	Output *os.File
	// Include source file positions
	ShortFile bool
}

// InitLogger builds the shared application logger.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	flags := log.LstdFlags | log.LUTC
	if cfg.ShortFile {
		flags |= log.Lshortfile
	}

	return log.New(cfg.Output, "[Assessment Engine] ", flags)
}
