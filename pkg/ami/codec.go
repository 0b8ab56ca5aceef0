package ami

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	lineSep   = "\r\n"
	kvSep     = ": "
	bannerTag = "Asterisk Call Manager/"
)

var packetSep = []byte(lineSep + lineSep)

// Decode parses the raw bytes of one packet (the region up to, but not
// including, the terminating blank line) into a Packet. isBanner
// should be true only for the very first line received after connect:
// a line lacking ": " is tolerated as a value-less banner only in that
// position; elsewhere it is dropped.
func Decode(raw []byte, isBanner bool) *Packet {
	p := NewPacket()
	lines := strings.Split(string(raw), lineSep)
	for i, line := range lines {
		if line == "" {
			continue
		}
		idx := strings.Index(line, kvSep)
		if idx < 0 {
			if isBanner && i == 0 {
				p.Add("Banner", line)
				continue
			}
			// Framing error: line without ": " elsewhere in the
			// packet. Tolerated by dropping it.
			log.Debug().Str("line", line).Msg("ami codec: dropping malformed line")
			continue
		}
		name := line[:idx]
		value := line[idx+len(kvSep):]
		p.Add(name, value)
	}
	return p
}

// Encode renders every value of every header as a "Name: Value\r\n"
// line, followed by a final blank line. Multi-valued headers each emit
// their own line, e.g. repeated "Variable:" entries on an Originate.
func Encode(p *Packet) []byte {
	var buf bytes.Buffer
	for _, name := range p.Keys() {
		for _, v := range p.Values(name) {
			buf.WriteString(name)
			buf.WriteString(kvSep)
			buf.WriteString(v)
			buf.WriteString(lineSep)
		}
	}
	buf.WriteString(lineSep)
	return buf.Bytes()
}

// EncodeMap is a convenience wrapper for the common single-valued case.
func EncodeMap(m map[string]string) []byte {
	return Encode(PacketFromMap(m))
}

// IsBannerLine reports whether line looks like the AMI connect banner,
// e.g. "Asterisk Call Manager/5.0.1".
func IsBannerLine(line string) bool {
	return strings.HasPrefix(line, bannerTag)
}

// BannerVersion extracts "5.0.1" out of "Asterisk Call Manager/5.0.1".
func BannerVersion(line string) string {
	return strings.TrimPrefix(line, bannerTag)
}
