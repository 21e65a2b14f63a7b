package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.Error(t, err)
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte("secret1"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "secret1", string(pw))
	assert.Equal(t, "Enter password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword(&out)
	require.Error(t, err)
}

func TestGetEditedText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		current     string
		wantValue   string
		wantChanged bool
	}{
		{name: "enter keeps", input: "\n", current: "7", wantValue: "7"},
		{name: "same value", input: "7\n", current: "7", wantValue: "7"},
		{name: "new value", input: " 8 \n", current: "7", wantValue: "8", wantChanged: true},
		{name: "clear", input: "-\n", current: "7", wantValue: "", wantChanged: true},
		{name: "clear empty", input: "-\n", current: "", wantValue: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			value, changed, err := GetEditedText(rdr(tt.input), "Grade", tt.current, &out)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Contains(t, out.String(), "Grade ["+tt.current+"]")
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"math", "physics"}, splitList(" math,physics , "))
	assert.Equal(t, []string{}, splitList(""))
}
