package logging

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
)

func TestNew_RedirectsStandardLogger(t *testing.T) {
	cfg := config.Defaults()

	logger, done, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.NotPanics(t, func() { log.Printf("StockLedger: redirected line") })
	done()
}
