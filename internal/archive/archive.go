// Package archive exports and imports the raw event log as a single
// zstd-compressed, msgpack-framed file — a backup/restore format
// independent of the bbolt on-disk layout. It compresses the same way
// the teacher's chunk file manager compresses chunk data: a zstd
// encoder/decoder pair wrapping a plain length-prefixed record stream.
package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// magic identifies the archive format; version allows future framing
// changes without guessing at an unversioned file's shape.
var magic = [4]byte{'A', 'M', 'A', 'R'}

const formatVersion = 1

// Export streams every event in [fromMs, toMs] from store into a
// zstd-compressed archive at path, one length-prefixed msgpack record
// per event.
func Export(store *storage.Storage, path string, fromMs, toMs int64) (int, error) {
	events, err := store.GetEventsInRange(fromMs, toMs)
	if err != nil {
		return 0, fmt.Errorf("read events: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return 0, fmt.Errorf("create zstd writer: %w", err)
	}
	defer enc.Close()

	bw := bufio.NewWriter(enc)
	if _, err := bw.Write(magic[:]); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(formatVersion)); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(len(events))); err != nil {
		return 0, err
	}

	for _, e := range events {
		b, err := msgpack.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.EventID, err)
		}
		if err := binary.Write(bw, binary.BigEndian, uint32(len(b))); err != nil {
			return 0, err
		}
		if _, err := bw.Write(b); err != nil {
			return 0, err
		}
	}

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("close zstd writer: %w", err)
	}
	return len(events), nil
}

// Import reads an archive written by Export and re-ingests every event
// through ingestFn, which is expected to apply the same validation and
// idempotence checks as the ingest entrypoint.
func Import(path string, ingestFn func(types.Event) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return 0, fmt.Errorf("read magic: %w", err)
	}
	if got != magic {
		return 0, fmt.Errorf("not an agent-memory archive")
	}
	var version, count uint32
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return 0, err
	}
	if version != formatVersion {
		return 0, fmt.Errorf("unsupported archive version %d", version)
	}
	if err := binary.Read(br, binary.BigEndian, &count); err != nil {
		return 0, err
	}

	imported := 0
	for i := uint32(0); i < count; i++ {
		var recLen uint32
		if err := binary.Read(br, binary.BigEndian, &recLen); err != nil {
			return imported, fmt.Errorf("read record length: %w", err)
		}
		buf := make([]byte, recLen)
		if _, err := io.ReadFull(br, buf); err != nil {
			return imported, fmt.Errorf("read record: %w", err)
		}
		var e types.Event
		if err := msgpack.Unmarshal(buf, &e); err != nil {
			return imported, fmt.Errorf("decode record %d: %w", i, err)
		}
		if err := ingestFn(e); err != nil {
			return imported, fmt.Errorf("ingest record %d: %w", i, err)
		}
		imported++
	}
	return imported, nil
}
