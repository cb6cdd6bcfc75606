package loader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

func TestSourceError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", sourceError(domain.DatasetRnD, domain.TierRemote, KindNotPublic, errors.New("HTTP 403")))

	assert.True(t, errors.Is(err, ErrNotPublic))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, KindNotPublic, KindOf(err))

	var se *SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.DatasetRnD, se.Dataset)
	assert.Equal(t, NotPublicRemediation, se.Remediation)
	assert.Contains(t, se.Error(), "Anyone with the link")
}

func TestSourceError_NotPublicDistinctFromNetwork(t *testing.T) {
	network := sourceError(domain.DatasetPrimary, domain.TierRemote, KindNetwork, errors.New("dial tcp: refused"))
	assert.True(t, errors.Is(network, ErrNetwork))
	assert.False(t, errors.Is(network, ErrNotPublic))
	assert.Empty(t, network.Remediation)
}

func TestWithDataset(t *testing.T) {
	se := withDataset(sourceError("", domain.TierRemote, KindEmpty, nil), domain.DatasetBarometer, domain.TierRemote)
	assert.Equal(t, domain.DatasetBarometer, se.Dataset)
	assert.Equal(t, KindEmpty, se.Kind)

	plain := withDataset(errors.New("boom"), domain.DatasetPrimary, domain.TierRemote)
	assert.Equal(t, KindNetwork, plain.Kind)
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("other")))
}
