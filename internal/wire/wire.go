// Package wire frames cache entries for byte-oriented backends.
//
// Layout:
//
//	magic(4) | ver(1) | expire(i64 be) | cidLen(u16 be) | cid | vlen(u32 be) | payload
//
// The cid travels inside the envelope so backends that address entries by a
// hashed name (file backend) can recover the clear key for prefix matching.
// The expire field uses the external sentinel encoding: 0 permanent, -1
// temporary, anything else a Unix-seconds deadline.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("bincache: corrupt entry")
	magic4     = [...]byte{'B', 'I', 'N', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames an entry. cid must be non-empty and at most 64 KiB.
func Encode(cid string, expire int64, payload []byte) []byte {
	if l := len(cid); l == 0 || l > 0xFFFF {
		panic("bincache: invalid cid length in envelope")
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 2 + len(cid) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], uint64(expire))
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(cid)))
	buf.Write(u2[:])
	buf.WriteString(cid)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])
	buf.Write(payload)

	return buf.Bytes()
}

// Decode unframes an entry. The returned payload aliases b.
// Truncated input and trailing bytes both read as corruption.
func Decode(b []byte) (cid string, expire int64, payload []byte, err error) {
	const hdr = 4 + 1 + 8 + 2
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return "", 0, nil, ErrCorrupt
	}

	off := 5

	expire = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	klen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if klen == 0 || klen > len(b)-off {
		return "", 0, nil, ErrCorrupt
	}
	cid = string(b[off : off+klen])
	off += klen

	if off+4 > len(b) {
		return "", 0, nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return "", 0, nil, ErrCorrupt
	}

	return cid, expire, b[off : off+vlen], nil
}

// DecodeHeader reads only cid and expire. Handy for sweeps and prefix scans
// that never touch the payload.
func DecodeHeader(b []byte) (cid string, expire int64, err error) {
	cid, expire, _, err = Decode(b)
	return cid, expire, err
}
