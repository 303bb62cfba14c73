// Package bootstrap собирает движок диспетчеризации: Postgres, RabbitMQ,
// WebSocket-хаб, in-memory Store с наблюдателями и HTTP-транспорт.
package bootstrap

import (
	"context"
	"encoding/json"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/adapters/in/transport"
	messaging "github.com/markblanca/quicklink-delivery/internal/dispatch/adapters/out/amqp"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/adapters/out/repo"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/adapters/out/sessionfile"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/adapters/out/wsnotify"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/engine"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/auth"
	"github.com/markblanca/quicklink-delivery/internal/shared/config"
	db_conn "github.com/markblanca/quicklink-delivery/internal/shared/db"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
	"github.com/markblanca/quicklink-delivery/internal/shared/mq"
	"github.com/markblanca/quicklink-delivery/internal/shared/ws"

	"net/http"
)

const (
	// persistTimeout — бюджет фоновой записи коллекции в Postgres
	persistTimeout = 10 * time.Second

	// purgeInterval — периодичность чистки завершённых сервисов
	purgeInterval = 24 * time.Hour

	shutdownTimeout = 15 * time.Second
)

// Run запускает движок и блокируется до отмены контекста
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "dispatch_engine_starting", Message: "initializing dispatch engine"})

	// 1. PostgreSQL
	dbPool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer db_conn.Close(dbPool, log)

	if err := db_conn.Migrate(ctx, dbPool); err != nil {
		log.Error(logger.Entry{
			Action:  "db_migration_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		// Не падаем если миграции уже применены
	}

	// 2. RabbitMQ
	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(mqConn); err != nil {
		log.Error(logger.Entry{
			Action:  "rabbitmq_topology_setup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		// Не падаем если топология уже создана
	}

	// 3. Коллабораторы
	stateRepo := repo.NewStatePgRepository(dbPool)
	events := messaging.NewEventPublisher(mqConn, log)
	positions := messaging.NewPositionSource(mqConn, log)
	jwtService := auth.NewJWTService(cfg.JWT)
	sessionSlot := sessionfile.NewSessionStore(cfg.Session.TokenPath)

	// 4. WebSocket-хаб: токены сессий проверяет JWT-сервис
	hub := ws.NewHub(jwtService.ExtractUser, log)
	go hub.Run(ctx)

	// 5. Ядро
	st := store.New()
	lifecycle := engine.NewLifecycle(st, events, log)
	authenticator := engine.NewAuthenticator(st, cfg.Admin, log)
	sessions := engine.NewSessionManager(jwtService, sessionSlot, log)
	tracking := engine.NewTrackingCoordinator(st, positions, log)
	reconciler := engine.NewReconciler(st, sessions, lifecycle, log)
	notifier := wsnotify.NewNotifier(hub, log)
	trigger := engine.NewNotificationTrigger(notifier, sessions, log)

	// Хуки сессии: при входе курьера пересчитать его статус и поднять
	// трекинг, если флаг включён; при выходе снять подписку
	sessions.OnEstablish = func(ctx context.Context, sess *domain.Session) {
		if sess.Role != model.RoleDelivery {
			return
		}
		lifecycle.RefreshRiderStatus(ctx, sess.ID)
		tracking.Sync(ctx, sess.ID)
	}
	sessions.OnClear = func(sess *domain.Session) {
		if sess.Role == model.RoleDelivery {
			tracking.Stop()
		}
	}

	// 6. Стартовая загрузка состояния
	snap, err := stateRepo.LoadAll(ctx)
	if err != nil {
		log.Error(logger.Entry{
			Action:  "state_load_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		// Пустое состояние допустимо: движок начнёт с нуля
	}
	st.Seed(snap)
	trigger.Seed(snap)

	// Чистка при старте, как делал бы клиент при загрузке
	if removed := reconciler.PurgeOldServices(time.Now().UTC()); removed > 0 {
		log.Info(logger.Entry{
			Action:  "retention_purge_on_start",
			Message: "purged completed services past retention",
			Additional: map[string]any{
				"removed": removed,
			},
		})
	}

	// 7. Наблюдатели Store. Порядок фиксирован: персистентность, рассылка
	// на устройства, триггер уведомлений.
	writer := newStateWriter(ctx, stateRepo, log)
	st.Subscribe(writer.Observe)
	st.Subscribe(broadcastObserver(hub))
	st.Subscribe(trigger.Observe)

	// 8. Входящие снапшоты по WebSocket сливаются через Reconciler
	hub.SetMessageHandler(func(client *ws.Client, messageType string, data json.RawMessage) error {
		switch messageType {
		case "snapshot_push":
			var incoming domain.Snapshot
			if err := json.Unmarshal(data, &incoming); err != nil {
				return err
			}
			reconciler.Import(ctx, incoming)
			return nil
		case "snapshot_pull":
			return client.SendJSON(map[string]any{
				"type": "snapshot",
				"data": reconciler.Export(),
			})
		default:
			log.Warn(logger.Entry{
				Action:  "ws_unknown_message_type",
				Message: messageType,
			})
			return nil
		}
	})

	// 9. Восстановление сессии из слота
	sessions.Restore(ctx)

	// 10. Периодическая чистка
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := reconciler.PurgeOldServices(now.UTC()); removed > 0 {
					log.Info(logger.Entry{
						Action:  "retention_purge",
						Message: "purged completed services past retention",
						Additional: map[string]any{
							"removed": removed,
						},
					})
				}
			}
		}
	}()

	// 11. HTTP-транспорт
	router := http.NewServeMux()
	handler := transport.NewHandler(authenticator, sessions, lifecycle, tracking, reconciler, log)
	transport.Routes(router, handler, hub, jwtService, log)

	// Общие middleware поверх роутера: request id, затем access-лог
	chain := transport.LoggingMiddleware(log)(
		transport.RequestIDMiddleware()(router),
	)

	server := transport.NewHTTPServer(chain, cfg.HTTP.Port, log)
	go func() {
		if err := server.Serve(); err != nil {
			log.Fatal(logger.Entry{
				Action:  "http_server_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}()

	<-ctx.Done()
	log.Info(logger.Entry{Action: "dispatch_engine_stopping", Message: "shutting down dispatch engine"})

	tracking.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	log.Info(logger.Entry{Action: "dispatch_engine_stopped", Message: "dispatch engine stopped"})
}

// broadcastObserver рассылает изменившуюся коллекцию всем устройствам
func broadcastObserver(hub *ws.Hub) store.Observer {
	return func(col store.Collection, snap domain.Snapshot) {
		msg := map[string]any{
			"type": "state_changed",
			"data": map[string]any{
				"collection": string(col),
				"snapshot":   snap,
			},
		}
		go func() { _ = hub.BroadcastJSON(msg) }()
	}
}
