package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup_valuation/pkg/core/intent"
	"startup_valuation/pkg/models"
)

func TestInterpret_SanitizesMessage(t *testing.T) {
	snap := models.ValuationSnapshot{Revenue: 1e7, MultipleSet: models.MultipleSet{Mid: 10}}

	out, err := interpret(snap, "<b>use</b> 9x")
	require.NoError(t, err)
	assert.Equal(t, []intent.Kind{intent.SetMultiple}, out.Applied)
	assert.Equal(t, 9.0, out.Snapshot.MultipleSet.Mid)

	// The command sits past the length cap and is never seen.
	out, err = interpret(snap, strings.Repeat("a", intent.MaxUtteranceLength)+" use 9x")
	require.NoError(t, err)
	assert.Empty(t, out.Applied)
	assert.Equal(t, 10.0, out.Snapshot.MultipleSet.Mid)
}
