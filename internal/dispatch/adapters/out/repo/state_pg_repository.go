package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	out "github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// statePgRepository — Postgres-реализация коллаборатора персистентности.
// Семантика записи повторяет контракт Store: замена коллекции целиком,
// в одной транзакции.
type statePgRepository struct {
	pool *pgxpool.Pool
}

func NewStatePgRepository(pool *pgxpool.Pool) out.StateRepository {
	return &statePgRepository{pool: pool}
}

func (r *statePgRepository) LoadAll(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	riders, err := r.loadRiders(ctx)
	if err != nil {
		return snap, fmt.Errorf("load riders: %w", err)
	}
	services, err := r.loadServices(ctx)
	if err != nil {
		return snap, fmt.Errorf("load services: %w", err)
	}
	customers, err := r.loadCustomers(ctx)
	if err != nil {
		return snap, fmt.Errorf("load customers: %w", err)
	}

	snap.Riders = riders
	snap.Services = services
	snap.Customers = customers
	return snap, nil
}

func (r *statePgRepository) loadRiders(ctx context.Context) ([]domain.Rider, error) {
	query := `
		SELECT id, username, password, name, status, last_status_change,
		       last_completed_at, is_tracking, latitude, longitude, located_at
		FROM riders
		ORDER BY last_status_change
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query riders: %w", err)
	}
	defer rows.Close()

	var riders []domain.Rider
	for rows.Next() {
		var rd domain.Rider
		var lat, lng *float64
		var locatedAt *time.Time

		err := rows.Scan(
			&rd.ID,
			&rd.Username,
			&rd.Password,
			&rd.Name,
			&rd.Status,
			&rd.LastStatusChange,
			&rd.LastCompletedAt,
			&rd.IsTracking,
			&lat,
			&lng,
			&locatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rider: %w", err)
		}
		if lat != nil && lng != nil {
			loc := domain.Location{Lat: *lat, Lng: *lng}
			if locatedAt != nil {
				loc.Timestamp = *locatedAt
			}
			rd.Location = &loc
		}
		riders = append(riders, rd)
	}
	return riders, rows.Err()
}

func (r *statePgRepository) loadServices(ctx context.Context) ([]domain.Service, error) {
	query := `
		SELECT id, customer_id, customer_name, customer_phone, activity,
		       value, payment_type, status, COALESCE(assigned_to_rider_id, ''),
		       created_at, started_at, completed_at
		FROM services
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		var s domain.Service
		err := rows.Scan(
			&s.ID,
			&s.CustomerID,
			&s.CustomerName,
			&s.CustomerPhone,
			&s.Activity,
			&s.Value,
			&s.PaymentType,
			&s.Status,
			&s.AssignedToRiderID,
			&s.CreatedAt,
			&s.StartedAt,
			&s.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *statePgRepository) loadCustomers(ctx context.Context) ([]domain.Customer, error) {
	query := `SELECT id, name, phone, COALESCE(address, '') FROM customers ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *statePgRepository) SaveRiders(ctx context.Context, riders []domain.Rider) error {
	return r.replaceAll(ctx, "riders", func(tx pgx.Tx) error {
		for _, rd := range riders {
			var lat, lng *float64
			var locatedAt interface{}
			if rd.Location != nil {
				lat = &rd.Location.Lat
				lng = &rd.Location.Lng
				locatedAt = rd.Location.Timestamp
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO riders (id, username, password, name, status, last_status_change,
				                    last_completed_at, is_tracking, latitude, longitude, located_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, rd.ID, rd.Username, rd.Password, rd.Name, rd.Status, rd.LastStatusChange,
				rd.LastCompletedAt, rd.IsTracking, lat, lng, locatedAt)
			if err != nil {
				return fmt.Errorf("insert rider %s: %w", rd.ID, err)
			}
		}
		return nil
	})
}

func (r *statePgRepository) SaveServices(ctx context.Context, services []domain.Service) error {
	return r.replaceAll(ctx, "services", func(tx pgx.Tx) error {
		for _, s := range services {
			var riderID interface{}
			if s.AssignedToRiderID != "" {
				riderID = s.AssignedToRiderID
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, customer_id, customer_name, customer_phone, activity,
				                      value, payment_type, status, assigned_to_rider_id,
				                      created_at, started_at, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			`, s.ID, s.CustomerID, s.CustomerName, s.CustomerPhone, s.Activity,
				s.Value, s.PaymentType, s.Status, riderID,
				s.CreatedAt, s.StartedAt, s.CompletedAt)
			if err != nil {
				return fmt.Errorf("insert service %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

func (r *statePgRepository) SaveCustomers(ctx context.Context, customers []domain.Customer) error {
	return r.replaceAll(ctx, "customers", func(tx pgx.Tx) error {
		for _, c := range customers {
			var address interface{}
			if c.Address != "" {
				address = c.Address
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO customers (id, name, phone, address) VALUES ($1, $2, $3, $4)
			`, c.ID, c.Name, c.Phone, address)
			if err != nil {
				return fmt.Errorf("insert customer %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// replaceAll: DELETE + INSERT всей таблицы в одной транзакции, чтобы
// сохранённая коллекция наблюдалась как один неделимый шаг
func (r *statePgRepository) replaceAll(ctx context.Context, table string, insert func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
