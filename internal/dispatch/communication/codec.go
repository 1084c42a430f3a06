package communication

import (
	"encoding/json"
	"fmt"

	"lumen-remote/internal/dispatch/domain"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"

	DefaultMaxPayloadBytes = 512
)

type Codec interface {
	Name() string
	Encode(patch domain.StatePatch) ([]byte, error)
}

func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown payload codec %q", name)
	}
}

var _ Codec = JSONCodec{}

type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }

func (JSONCodec) Encode(patch domain.StatePatch) ([]byte, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshaling data: %w", err)
	}
	return data, nil
}

var _ Codec = MsgpackCodec{}

// MsgpackCodec is for bridges that forward to constrained firmware.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }

func (MsgpackCodec) Encode(patch domain.StatePatch) ([]byte, error) {
	data, err := msgpack.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshaling: %w", err)
	}
	return data, nil
}

// encodeBounded encodes patch and refuses anything larger than limit
// bytes. A limit of zero or less disables the check.
func encodeBounded(codec Codec, patch domain.StatePatch, limit int) ([]byte, error) {
	data, err := codec.Encode(patch)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(data) > limit {
		return nil, fmt.Errorf("%s payload of %d bytes over %d: %w", codec.Name(), len(data), limit, domain.ErrPayloadOverflow)
	}
	return data, nil
}
