package prompter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	var out bytes.Buffer
	p := NewWithIO(strings.NewReader("  reader@macchain.kr \n"), &out)

	v, err := p.String("Email: ")
	require.NoError(t, err)
	assert.Equal(t, "reader@macchain.kr", v)
	assert.Equal(t, "Email: ", out.String())
}

func TestStringWithoutTrailingNewline(t *testing.T) {
	p := NewWithIO(strings.NewReader("last"), &bytes.Buffer{})
	v, err := p.String("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", v)
}

func TestRequiredRejectsEmpty(t *testing.T) {
	p := NewWithIO(strings.NewReader("\n"), &bytes.Buffer{})
	_, err := p.Required("Title: ")
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestPasswordFallsBackToLine(t *testing.T) {
	p := NewWithIO(strings.NewReader("secret123\n"), &bytes.Buffer{})
	pw, err := p.Password("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret123", pw)
}

func TestConfirm(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false} {
		p := NewWithIO(strings.NewReader(input), &bytes.Buffer{})
		got, err := p.Confirm("Delete?")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestMultiline(t *testing.T) {
	p := NewWithIO(strings.NewReader("In the beginning\nGod created\n\nignored\n"), &bytes.Buffer{})
	v, err := p.Multiline("Content")
	require.NoError(t, err)
	assert.Equal(t, "In the beginning\nGod created", v)
}
