package speech

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Clip is a synthesised audio clip ready for playback.
type Clip struct {
	// MIME is the audio MIME type (e.g., "audio/mpeg", "audio/wav").
	MIME string

	// Data is the raw audio payload.
	Data []byte
}

// DataURI encodes the clip as a data: URI suitable for handing to a
// browser-style audio element.
func (c Clip) DataURI() string {
	mime := c.MIME
	if mime == "" {
		mime = "audio/mpeg"
	}
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(c.Data))
	return b.String()
}

// ParseDataURI decodes a data: URI produced by [Clip.DataURI] (or by a
// remote endpoint) back into a Clip.
func ParseDataURI(uri string) (Clip, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Clip{}, errors.New("speech: not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Clip{}, errors.New("speech: malformed data URI")
	}
	mime, _ := strings.CutSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Clip{}, errors.New("speech: data URI payload is not valid base64")
	}
	return Clip{MIME: mime, Data: data}, nil
}
