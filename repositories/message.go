//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const keyPrefix = "msg:"

type IMessageRepository interface {
	StoreMessage(author, body, sourceLang string) (DiskMessage, error)
	Recent() ([]DiskMessage, error)
	SetTranslation(id uuid.UUID, at time.Time, lang, text string) error
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the stored document shape:
// {id, author, body, lang, translations, createdAt}.
type DiskMessage struct {
	ID           uuid.UUID         `json:"id"`
	Author       string            `json:"author"`
	Body         string            `json:"body"`
	SourceLang   string            `json:"lang"`
	Translations map[string]string `json:"translations"`
	At           time.Time         `json:"createdAt"`
}

// messageKey formats "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(id uuid.UUID, at time.Time) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", keyPrefix, at.UnixNano(), id))
}

// StoreMessage persists a new canonical message with an empty translation map.
// A storage error here is fatal for the inbound message: the caller must not
// broadcast anything it failed to persist.
func (m MessageRepository) StoreMessage(author, body, sourceLang string) (DiskMessage, error) {
	message := DiskMessage{
		ID:           uuid.New(),
		Author:       author,
		Body:         body,
		SourceLang:   sourceLang,
		Translations: make(map[string]string),
		At:           time.Now().UTC(),
	}
	bytes, err := json.Marshal(message)
	if err != nil {
		return DiskMessage{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.ID, message.At), bytes)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return message, nil
}

// Recent retrieves the most recent messages, oldest first.
// Thanks to the padded timestamp in the key, a reverse prefix scan yields
// newest first; the collected slice is flipped before returning.
// It stops collecting once the configured limitMessages is reached.
func (m MessageRepository) Recent() ([]DiskMessage, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(keyPrefix)
		// Seek past every possible timestamp to land on the newest entry
		seekKey := append([]byte(keyPrefix), []byte("9999999999999999999")...)

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, value)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var diskMessages []DiskMessage
	for _, b := range byteMessages {
		var message DiskMessage
		if err = json.Unmarshal(b, &message); err != nil {
			return nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	return lo.Reverse(diskMessages), nil
}

// SetTranslation upserts one (lang, text) entry into a stored message's
// translation map. The upsert is idempotent and last-write-wins: concurrent
// fills for the same pair converge on one stored value. Concurrent fills for
// different languages of one message are read-modify-write transactions on
// the same key, so badger fails all but one with ErrConflict; a conflicted
// fill retries, re-reading the record that now carries the sibling's entry.
// Other failures are the caller's to log and swallow; a failed cache write
// must never block delivery of the already-computed translation.
func (m MessageRepository) SetTranslation(id uuid.UUID, at time.Time, lang, text string) error {
	for {
		err := m.fillTranslation(id, at, lang, text)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		m.log.Debug("Translation fill conflicted, retrying",
			"message_id", id,
			"lang", lang)
	}
}

func (m MessageRepository) fillTranslation(id uuid.UUID, at time.Time, lang, text string) error {
	key := messageKey(id, at)
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var message DiskMessage
		err = item.Value(func(value []byte) error {
			return json.Unmarshal(value, &message)
		})
		if err != nil {
			return err
		}
		if message.Translations == nil {
			message.Translations = make(map[string]string)
		}
		message.Translations[lang] = text
		bytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// ClearMessages wipes every stored message and reports how many were removed.
// Administrative action, exposed through the viewer tool only.
func (m MessageRepository) ClearMessages() (int, error) {
	var keys [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		err = m.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return len(keys), err
		}
	}
	return len(keys), nil
}
