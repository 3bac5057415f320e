package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

// Key layout:
//
//	c:<len4><idA><len4><idB><id8>  -> message JSON, ordered by id within the pair
//	m:<id8>                        -> conversation key, so MarkRead can find the row
//
// Ids come from a badger sequence, so per-pair key order equals append
// order equals createdAt order (timestamps are stamped by the single
// delivery engine).
const (
	convPrefix = "c:"
	msgPrefix  = "m:"
	seqKey     = "chathub/message-id"
)

type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
}

func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	seq, err := db.GetSequence([]byte(seqKey), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("message id sequence: %w", err)
	}
	return &Badger{db: db, seq: seq}, nil
}

func (b *Badger) Close() error {
	if err := b.seq.Release(); err != nil {
		_ = b.db.Close()
		return err
	}
	return b.db.Close()
}

func (b *Badger) Append(_ context.Context, senderID, receiverID domain.UserID, content string, createdAt time.Time) (domain.Message, error) {
	next, err := b.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("next message id: %w", err)
	}
	msg := domain.Message{
		ID:         domain.MessageID(next + 1), // sequence starts at 0, ids at 1
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  createdAt,
	}
	val, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, err
	}
	ck := convKey(senderID, receiverID, msg.ID)
	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(ck, val); err != nil {
			return err
		}
		return txn.Set(msgKey(msg.ID), ck)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("persist message %d: %w", msg.ID, err)
	}
	return msg, nil
}

func (b *Badger) MarkRead(_ context.Context, id domain.MessageID) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(msgKey(id))
		if err != nil {
			return err
		}
		ck, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		row, err := txn.Get(ck)
		if err != nil {
			return err
		}
		var msg domain.Message
		if err := row.Value(func(val []byte) error { return json.Unmarshal(val, &msg) }); err != nil {
			return err
		}
		if msg.IsRead {
			return nil
		}
		msg.IsRead = true
		val, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return txn.Set(ck, val)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.ErrMessageNotFound
	}
	return err
}

func (b *Badger) QueryConversation(_ context.Context, userA, userB domain.UserID, skip, take int) ([]domain.Message, error) {
	prefix := pairPrefix(userA, userB)
	out := make([]domain.Message, 0, take)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode the iterator must be seeked past the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		skipped := 0
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < take; it.Next() {
			if skipped < skip {
				skipped++
				continue
			}
			var msg domain.Message
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &msg) }); err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return out, nil
}

func (b *Badger) CountUnread(_ context.Context, receiverID, senderID domain.UserID) (int, error) {
	prefix := pairPrefix(receiverID, senderID)
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg domain.Message
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &msg) }); err != nil {
				return err
			}
			if msg.ReceiverID == receiverID && msg.SenderID == senderID && !msg.IsRead {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan unread: %w", err)
	}
	return n, nil
}

// pairPrefix is direction-independent so both halves of a conversation
// share one key range. Ids are opaque and may contain any byte, so each
// component is length-prefixed; two distinct pairs can never produce
// overlapping key ranges.
func pairPrefix(a, b domain.UserID) []byte {
	if b < a {
		a, b = b, a
	}
	buf := make([]byte, 0, len(convPrefix)+8+len(a)+len(b))
	buf = append(buf, convPrefix...)
	buf = appendUserID(buf, a)
	return appendUserID(buf, b)
}

func appendUserID(dst []byte, id domain.UserID) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(id)))
	return append(append(dst, n[:]...), id...)
}

func convKey(a, b domain.UserID, id domain.MessageID) []byte {
	return append(pairPrefix(a, b), idBytes(id)...)
}

func msgKey(id domain.MessageID) []byte {
	return append([]byte(msgPrefix), idBytes(id)...)
}

func idBytes(id domain.MessageID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}
