// Package runtime hosts the relay engine: session registry, command intake,
// fan-out workers, and the supporting loaders.
package runtime

import (
	"bufio"
	"bytes"
	relayerrors "chat-relay/errors"
	"embed"
	"io/fs"
	"strings"
)

// CensoredData carries the loaded word lists plus metadata for logging.
type CensoredData struct {
	Words     []string
	Languages []string
}

// CensoredLoader reads blacklisted words from embedded per-language files.
type CensoredLoader struct {
	fs embed.FS
}

func NewCensoredLoader(f embed.FS) *CensoredLoader {
	return &CensoredLoader{fs: f}
}

// LoadAll scans the given directory in the embedded FS, treating each .txt
// file as one language dictionary ("ko.txt" -> "ko"), and merges contents
// into a unique word list.
func (l *CensoredLoader) LoadAll(path string) (*CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := l.fs.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, relayerrors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	return &CensoredData{Words: words, Languages: languages}, nil
}
