package cubedb

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// errChecksum marks a record whose checksum footer does not match its
// payload. Such records are treated as absent: the caller regenerates the
// data rather than loading corruption.
var errChecksum = errors.New("cubedb: record checksum mismatch")

// Serialisable forms of the world data. Kept separate from the world types so
// the on-disk layout can evolve independently of the in-memory one.
type settingsData struct {
	Name           string
	Spawn          [3]int32
	CurrentTick    int64
	SavingDisabled bool
}

type columnData struct {
	Pos              [2]int32
	TerrainPopulated bool
	Heights          [256]int32
	HeightsSet       [256]bool
}

type cubeData struct {
	Pos    [3]int32
	Stage  uint8
	Blocks []uint16
}

// encodeRecord gob-encodes v, compresses the result and appends an xxhash
// footer over the compressed payload.
func (db *DB) encodeRecord(v any) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	payload := db.enc.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()/2+8))
	return binary.LittleEndian.AppendUint64(payload, xxhash.Sum64(payload)), nil
}

// decodeRecord verifies the checksum footer of data, decompresses the payload
// and gob-decodes it into v.
func (db *DB) decodeRecord(data []byte, v any) error {
	if len(data) < 8 {
		return errChecksum
	}
	payload, footer := data[:len(data)-8], data[len(data)-8:]
	if xxhash.Sum64(payload) != binary.LittleEndian.Uint64(footer) {
		return errChecksum
	}
	raw, err := db.dec.DecodeAll(payload, nil)
	if err != nil {
		return fmt.Errorf("decompress record: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
