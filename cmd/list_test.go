package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sigscan.dev/pkg/sigscan/internal/domain"
	domainmocks "sigscan.dev/pkg/sigscan/internal/domain/mocks"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

func TestListCmd_PassesDiscoveryOptions(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	originalWorkflow := workflow
	workflow = mockWorkflow
	defer func() { workflow = originalWorkflow }()

	mockWorkflow.On("List", mock.Anything, mock.MatchedBy(func(args domain.ListArgs) bool {
		return args.Root == m.Path("./site") &&
			len(args.Discover.Extensions) == 1 &&
			args.Discover.Extensions[0] == ".phtml" &&
			len(args.Discover.Exclude) == 1
	})).Return(nil)

	cmd.SetArgs([]string{"list", "--ext", ".phtml", "-x", "node_modules", "./site"})
	err := cmd.Execute()
	require.NoError(t, err)
}

func TestListCmd_RequiresDirectory(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	originalWorkflow := workflow
	workflow = mockWorkflow
	defer func() { workflow = originalWorkflow }()

	cmd.SetArgs([]string{"list"})
	err := cmd.Execute()
	require.Error(t, err)
}
