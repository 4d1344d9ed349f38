package main

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,default=4"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=10s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=3000"`

	SourceLang  string `env:"SOURCE_LANG,default=ko"`
	SystemLabel string `env:"SYSTEM_LABEL,default=시스템"`

	TranslateEndpoint string        `env:"TRANSLATE_ENDPOINT,required=true"`
	TranslateAPIKey   string        `env:"TRANSLATE_API_KEY"`
	TranslateTimeout  time.Duration `env:"TRANSLATE_TIMEOUT,default=10s"`
}

// defaultLimitMessages bounds history replay when LIMIT_MESSAGES is unset.
const defaultLimitMessages = 100

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
