package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/quoter/pkg/a2a"
	"github.com/kadirpekel/quoter/pkg/config"
)

func TestSweeper_RemovesExpiredTasks(t *testing.T) {
	cfg := config.TaskConfig{
		GracePeriod:   10 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	}
	r := NewRegistry(cfg)

	created := r.Create(userMessage("quote"))
	_, err := r.ApplyTransition(created.ID, a2a.TaskStateWorking, "", nil)
	require.NoError(t, err)
	_, err = r.ApplyTransition(created.ID, a2a.TaskStateCompleted, "done", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewSweeper(r, cfg).Run(ctx)

	require.Eventually(t, func() bool {
		return r.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)
}
