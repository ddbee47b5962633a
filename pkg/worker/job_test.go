package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/jobpool/pkg/types"
)

func TestBasicJob(t *testing.T) {
	t.Run("RandomIDs", func(t *testing.T) {
		a := NewNormalJob(func(ctx context.Context) error { return nil })
		b := NewNormalJob(func(ctx context.Context) error { return nil })

		assert.NotEmpty(t, a.ID())
		assert.NotEqual(t, a.ID(), b.ID())
		assert.Equal(t, types.PriorityNormal, a.Priority())
	})

	t.Run("CustomID", func(t *testing.T) {
		job := NewJobWithID("render", func(ctx context.Context) error { return nil }, types.PriorityHigh)

		assert.Equal(t, "render", job.ID())
		assert.Equal(t, types.PriorityHigh, job.Priority())
		assert.Equal(t, "render(high)", job.String())
	})

	t.Run("ComputeReturnsError", func(t *testing.T) {
		boom := errors.New("boom")
		job := NewJob(func(ctx context.Context) error { return boom }, types.PriorityLow)

		assert.ErrorIs(t, job.Compute(context.Background()), boom)
	})

	t.Run("NilFunction", func(t *testing.T) {
		job := NewJobWithID("empty", nil, types.PriorityLow)

		err := job.Compute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("ImplementsJob", func(t *testing.T) {
		var _ types.Job = NewNormalJob(nil)
	})
}
