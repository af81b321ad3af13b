package trigger

import (
	"testing"

	"github.com/felixgeelhaar/gritline/adapter/cli/clitest"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	container := clitest.NewApp(t, Cmd)

	var views []RuleView
	clitest.RunJSON(t, &views, "trigger", "list")
	require.Len(t, views, len(container.Catalog.Rules()))

	ids := make([]trigger.ID, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
		require.NotNil(t, v.Question, v.ID)
		assert.NotEmpty(t, v.Question.Options, v.ID)
	}
	assert.Contains(t, ids, trigger.NegativeAffect)
	assert.Contains(t, ids, trigger.Procrastination)

	out, err := clitest.Run(t, "trigger", "list")
	require.NoError(t, err)
	assert.Contains(t, out, string(trigger.NegativeAffect))
}
