package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueJSON(t *testing.T) {
	t.Parallel()

	row := Row{
		"n": Number(1.5),
		"s": String("hi"),
		"b": Bool(true),
		"0": Null(),
	}

	raw, err := json.Marshal(row)
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1.5,"s":"hi","b":true,"0":null}`, string(raw))

	var back Row
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, Number(1.5), back["n"])
	require.Equal(t, String("hi"), back["s"])
	require.Equal(t, Bool(true), back["b"])
	require.True(t, back["0"].IsNull())
}

func TestValueOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, Number(3), ValueOf(int64(3)))
	require.Equal(t, Number(2.5), ValueOf(2.5))
	require.Equal(t, String("x"), ValueOf("x"))
	require.Equal(t, Bool(false), ValueOf(false))
	require.True(t, ValueOf(nil).IsNull())
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1.5", Number(1.5).Display())
	require.Equal(t, "1000", Number(1000).Display())
	require.Equal(t, "true", Bool(true).Display())
	require.Equal(t, "hi", String("hi").Display())
	require.Equal(t, "", Null().Display())
}
