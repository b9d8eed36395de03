package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snackhub/orderfeed/internal/docstore"
	"github.com/snackhub/orderfeed/internal/model"
)

func newTestService(t *testing.T) (*docstore.Store, *Service) {
	t.Helper()
	ds, err := docstore.Open(docstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds, NewService(ds)
}

func TestPushAndList(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Push(ctx, "u1", "Pedido realizado", "Seu pedido #1 foi recebido")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	time.Sleep(5 * time.Millisecond) // distinct timestamps
	_, err = svc.Push(ctx, "u1", "Pedido pronto", "Seu pedido #1 está pronto")
	require.NoError(t, err)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Pedido pronto", list[0].Title, "newest first")
	require.Equal(t, first.ID, list[1].ID)
}

func TestListOtherUserIsEmpty(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Push(ctx, "u1", "a", "b")
	require.NoError(t, err)

	list, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPushRequiresUser(t *testing.T) {
	_, svc := newTestService(t)
	_, err := svc.Push(context.Background(), "", "a", "b")
	require.Error(t, err)
}

func TestObserveEmitsOnChange(t *testing.T) {
	_, svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := svc.Observe(ctx, "u1")
	require.NoError(t, err)

	recv := func() []model.Notification {
		select {
		case l, ok := <-feed.Updates():
			require.True(t, ok, "feed closed: %v", feed.Err())
			return l
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out")
			return nil
		}
	}

	require.Empty(t, recv())

	_, err = svc.Push(ctx, "u1", "Pedido realizado", "...")
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if l := recv(); len(l) == 1 {
			require.Equal(t, "Pedido realizado", l[0].Title)
			return
		}
		require.True(t, time.Now().Before(deadline))
	}
}
