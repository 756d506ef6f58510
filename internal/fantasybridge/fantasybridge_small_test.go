//go:build confab_small

package fantasybridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/confab/internal/proto"
)

func TestBuildCallSmallBuildHasNoProviderOptions(t *testing.T) {
	c := &Client{config: Config{API: "google", ThinkingBudget: 128}}
	call := c.buildCall(proto.Request{})
	require.Empty(t, call.ProviderOptions)
}
