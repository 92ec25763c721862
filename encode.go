package rest

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoder encodes response values to a wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// Decoder decodes request bodies from a wire format.
type Decoder interface {
	ContentType() string
	Decode(r io.Reader, v any) error
}

// jsonCodec implements both Encoder and Decoder for JSON.
type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// yamlCodec implements both Encoder and Decoder for YAML. Values go through
// their JSON form so json tags and custom marshalers apply to both formats.
type yamlCodec struct{}

func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Encode(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader, v any) error {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// blockStyle clears the flow and quoting styles a node inherits from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// codecRegistry holds the encoders and decoders a router speaks. JSON is
// always first and serves as the default in both directions.
type codecRegistry struct {
	encoders []Encoder
	decoders []Decoder
}

func newCodecRegistry(encoders []Encoder, decoders []Decoder) *codecRegistry {
	return &codecRegistry{
		encoders: append([]Encoder{jsonCodec{}, yamlCodec{}}, encoders...),
		decoders: append([]Decoder{jsonCodec{}, yamlCodec{}}, decoders...),
	}
}

type mediaRange struct {
	typ, sub string
	q        float64
}

func (m mediaRange) matches(contentType string) bool {
	typ, sub, _ := strings.Cut(contentType, "/")
	return (m.typ == "*" || m.typ == typ) && (m.sub == "*" || m.sub == sub)
}

// parseAccept returns the acceptable ranges of an Accept header, most
// preferred first. Ranges with q=0 are dropped.
func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if q, err = strconv.ParseFloat(v, 64); err != nil {
				continue
			}
		}
		if q <= 0 {
			continue
		}
		typ, sub, _ := strings.Cut(mediaType, "/")
		ranges = append(ranges, mediaRange{typ: typ, sub: cmp.Or(sub, "*"), q: q})
	}
	slices.SortStableFunc(ranges, func(a, b mediaRange) int { return cmp.Compare(b.q, a.q) })
	return ranges
}

// negotiate picks the encoder for an Accept header. An empty header means
// JSON; a header nothing satisfies reports false.
func (cr *codecRegistry) negotiate(accept string) (Encoder, bool) {
	if strings.TrimSpace(accept) == "" {
		return cr.encoders[0], true
	}
	for _, m := range parseAccept(accept) {
		for _, enc := range cr.encoders {
			if m.matches(enc.ContentType()) {
				return enc, true
			}
		}
	}
	return nil, false
}

// decoderFor picks the decoder for a Content-Type. A missing header means JSON.
func (cr *codecRegistry) decoderFor(contentType string) (Decoder, bool) {
	if contentType == "" {
		return cr.decoders[0], true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	i := slices.IndexFunc(cr.decoders, func(d Decoder) bool { return d.ContentType() == mediaType })
	if i < 0 {
		return nil, false
	}
	return cr.decoders[i], true
}
