package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/require"
	"skinwatch/internal/imagecatalog"
	"skinwatch/internal/logger"
)

func newFlagSet(cmd subcommands.Command, args ...string) *flag.FlagSet {
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	f.SetOutput(io.Discard)
	cmd.SetFlags(f)
	_ = f.Parse(args)
	return f
}

func TestCommands_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  subcommands.Command
		args []string
	}{
		{name: "search without query", cmd: &searchCmd{}},
		{name: "price without name", cmd: &priceCmd{}, args: []string{"  "}},
		{name: "details without id", cmd: &detailsCmd{}},
		{name: "history without id or name", cmd: &historyCmd{}},
		{name: "history with unknown source", cmd: &historyCmd{}, args: []string{"-source", "buff", "123"}},
		{name: "history with unknown force", cmd: &historyCmd{}, args: []string{"-force", "buff", "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlagSet(tt.cmd, tt.args...)

			got := tt.cmd.Execute(t.Context(), f)

			require.Equal(t, subcommands.ExitUsageError, got)
		})
	}
}

func TestPrintJSON_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	require.NoError(t, printJSON(map[string]string{"name": "AK-47 | Redline <FT>"}))

	require.Contains(t, buf.String(), "AK-47 | Redline <FT>")
}

type catalogLoader struct {
	catalog *imagecatalog.Catalog
	err     error
}

func (l catalogLoader) Load(context.Context) (*imagecatalog.Catalog, error) {
	return l.catalog, l.err
}

func TestRefreshImages(t *testing.T) {
	t.Parallel()

	const name = "AWP | Asiimov (Field-Tested)"

	// Arrange
	ok := imagecatalog.NewStore(catalogLoader{catalog: imagecatalog.NewCatalog([]imagecatalog.Entry{
		{Name: name, Image: "img://awp"},
	})}, logger.Discard())
	failing := imagecatalog.NewStore(catalogLoader{err: errors.New("offline")}, logger.Discard())

	// Act
	refreshImages(t.Context(), ok, logger.Discard())
	refreshImages(t.Context(), failing, logger.Discard())

	// Assert
	require.Equal(t, "img://awp", ok.Resolve(name))
	require.Equal(t, imagecatalog.Placeholder(name), failing.Resolve(name))
}

func TestSearchCmd_ImagesFlag(t *testing.T) {
	t.Parallel()

	c := &searchCmd{}
	newFlagSet(c, "redline")
	require.True(t, c.images)

	c = &searchCmd{}
	newFlagSet(c, "-images=false", "redline")
	require.False(t, c.images)
}
