package symbols

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	syms []Symbol
	err  error
}

func (s stubExtractor) Extract(content []byte, languageTag string) ([]Symbol, error) {
	return s.syms, s.err
}

func TestRegistry_UnknownTagReturnsEmpty(t *testing.T) {
	r := NewRegistry()
	syms, err := r.Extract([]byte("x"), "cobol")
	require.NoError(t, err)
	require.Nil(t, syms)
}

func TestRegistry_DispatchesAndDedups(t *testing.T) {
	r := NewRegistry()
	r.Register("go", stubExtractor{syms: []Symbol{
		{Kind: Function, Name: "f", Line: 1},
		{Kind: Function, Name: "f", Line: 1},
	}})

	syms, err := r.Extract([]byte("x"), "go")
	require.NoError(t, err)
	require.Len(t, syms, 1)
}

func TestRegistry_PropagatesWarning(t *testing.T) {
	r := NewRegistry()
	wantErr := errors.New("parse failure")
	r.Register("go", stubExtractor{err: wantErr})

	_, err := r.Extract([]byte("x"), "go")
	require.ErrorIs(t, err, wantErr)
}
