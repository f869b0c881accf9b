package cbor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testRecord struct {
	_     struct{} `cbor:",toarray"`
	ID    uint64
	Bytes []byte
}

func TestMarshalRoundTrip(t *testing.T) {
	in := testRecord{ID: 7, Bytes: []byte{1, 2, 3}}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out testRecord
	require.NoError(t, Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestMarshalIsDeterministic(t *testing.T) {
	in := map[string]uint64{"b": 2, "a": 1, "c": 3}
	d1, err := Marshal(in)
	require.NoError(t, err)
	d2, err := Marshal(in)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestTaggedValue(t *testing.T) {
	in := testRecord{ID: 9, Bytes: []byte{9}}
	data, err := MarshalTaggedValue(1001, in)
	require.NoError(t, err)

	var out testRecord
	require.NoError(t, UnmarshalTaggedValue(1001, data, &out))
	require.Equal(t, in, out)

	err = UnmarshalTaggedValue(1002, data, &out)
	require.ErrorContains(t, err, "unexpected tag: 1001")
}
