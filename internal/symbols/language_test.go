package symbols

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectLanguage_Go(t *testing.T) {
	require.Equal(t, "go", DetectLanguage("internal/search/engine.go"))
}

func TestDetectLanguage_Unknown(t *testing.T) {
	require.Equal(t, "", DetectLanguage("data.qzxnotarealext"))
}
