package bootstrap

import (
	"context"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

// stateWriter сериализует запись состояния в Postgres: одна горутина-писатель
// на коллекцию, в канале живёт только самый свежий срез. Более старый
// непрочитанный срез вытесняется, поэтому в базу никогда не попадает
// устаревшая коллекция поверх свежей. Персистентность best-effort: отказ
// записи логируется, мутация не откатывается.
type stateWriter struct {
	repo    out.StateRepository
	log     *logger.Logger
	pending map[store.Collection]chan domain.Snapshot
}

func newStateWriter(ctx context.Context, repo out.StateRepository, log *logger.Logger) *stateWriter {
	w := &stateWriter{
		repo: repo,
		log:  log,
		pending: map[store.Collection]chan domain.Snapshot{
			store.Riders:    make(chan domain.Snapshot, 1),
			store.Services:  make(chan domain.Snapshot, 1),
			store.Customers: make(chan domain.Snapshot, 1),
		},
	}
	for col, ch := range w.pending {
		go w.run(ctx, col, ch)
	}
	return w
}

// Observe — наблюдатель Store. Кладёт срез в канал писателя, вытесняя
// непрочитанный предыдущий; мутирующую горутину не блокирует.
func (w *stateWriter) Observe(col store.Collection, snap domain.Snapshot) {
	ch, ok := w.pending[col]
	if !ok {
		return
	}
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (w *stateWriter) run(ctx context.Context, col store.Collection, ch chan domain.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			w.save(ctx, col, snap)
		}
	}
}

func (w *stateWriter) save(ctx context.Context, col store.Collection, snap domain.Snapshot) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var err error
	switch col {
	case store.Riders:
		err = w.repo.SaveRiders(saveCtx, snap.Riders)
	case store.Services:
		err = w.repo.SaveServices(saveCtx, snap.Services)
	case store.Customers:
		err = w.repo.SaveCustomers(saveCtx, snap.Customers)
	}
	if err != nil {
		w.log.Error(logger.Entry{
			Action:  "state_persist_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"collection": string(col),
			},
		})
	}
}
