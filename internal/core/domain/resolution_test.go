package domain_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/gale/internal/core/domain"
)

func mustConstraint(t *testing.T, raw string) domain.Constraint {
	t.Helper()
	c, err := domain.ParseConstraint(raw)
	require.NoError(t, err)
	return c
}

func TestResolutionGraph_FingerprintIgnoresEdgeInputOrder(t *testing.T) {
	pkgs := []domain.ResolvedPackage{{
		Name:    domain.NewInternedString("libfoo"),
		Version: semver.MustParse("1.2.0"),
		Source:  domain.GitSource("https://git.example.com/libfoo", domain.RefTag, "v1.2.0"),
	}}

	// Two members require libfoo under different ranges, so both edges share
	// the same endpoints. Their order in the graph must not depend on the
	// order they were handed in.
	edges := []domain.Edge{
		{From: domain.NewInternedString("app"), To: domain.NewInternedString("libfoo"), Constraint: mustConstraint(t, "^1.0")},
		{From: domain.NewInternedString("app"), To: domain.NewInternedString("libfoo"), Constraint: mustConstraint(t, ">=1.1")},
	}
	reversed := []domain.Edge{edges[1], edges[0]}

	g1, err := domain.NewResolutionGraph(pkgs, edges)
	require.NoError(t, err)
	g2, err := domain.NewResolutionGraph(pkgs, reversed)
	require.NoError(t, err)

	assert.Equal(t, g1.Edges(), g2.Edges())
	assert.Equal(t, g1.Fingerprint(), g2.Fingerprint())
}

func TestResolutionGraph_RejectsCycles(t *testing.T) {
	pkgs := []domain.ResolvedPackage{
		{
			Name:    domain.NewInternedString("liba"),
			Version: semver.MustParse("1.0.0"),
			Source:  domain.GitSource("https://git.example.com/liba", domain.RefTag, "v1.0.0"),
		},
		{
			Name:    domain.NewInternedString("libb"),
			Version: semver.MustParse("1.0.0"),
			Source:  domain.GitSource("https://git.example.com/libb", domain.RefTag, "v1.0.0"),
		},
	}
	edges := []domain.Edge{
		{From: domain.NewInternedString("liba"), To: domain.NewInternedString("libb"), Constraint: domain.AnyVersion()},
		{From: domain.NewInternedString("libb"), To: domain.NewInternedString("liba"), Constraint: domain.AnyVersion()},
	}

	_, err := domain.NewResolutionGraph(pkgs, edges)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}
