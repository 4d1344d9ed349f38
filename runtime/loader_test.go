package runtime

import (
	relayerrors "chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)

	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll("censored")
	req.NoError(err)

	// One language per embedded .txt file
	req.ElementsMatch([]string{"en", "fr", "ko"}, data.Languages)
	req.NotEmpty(data.Words)

	// Merged list holds no duplicates and no blank lines
	seen := make(map[string]struct{}, len(data.Words))
	for _, w := range data.Words {
		req.NotEmpty(w)
		_, dup := seen[w]
		req.False(dup, "duplicate word %q", w)
		seen[w] = struct{}{}
	}
}

func TestCensoredLoader_MissingDirectory(t *testing.T) {
	req := require.New(t)

	loader := NewCensoredLoader(censoredFolder)
	_, err := loader.LoadAll("nowhere")
	req.Error(err)
	req.NotErrorIs(err, relayerrors.ErrEmptyWords)
}
