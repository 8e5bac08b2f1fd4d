package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scmdesk/scmdesk/internal/app"
	_ "github.com/scmdesk/scmdesk/internal/testing/guard"
)

func TestMainReturnsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
