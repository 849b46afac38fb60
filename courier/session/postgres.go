package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/routedesk/courierbot/core/logger"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store backed by the route_sessions and
// route_points tables.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Create(ctx context.Context, id ID, points []Point) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
INSERT INTO route_sessions (id,  user_id,  location,  created_at,  suffix)
                    VALUES (:id, :user_id, :location, :created_at, :suffix)
`, map[string]any{
		"id":         id.String(),
		"user_id":    id.UserID,
		"location":   id.Location,
		"created_at": id.CreatedAt,
		"suffix":     id.Suffix,
	})
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}

	for i, pt := range points {
		_, err = tx.NamedExecContext(ctx, `
INSERT INTO route_points (session_id,  point_idx,  detail,  photo_file_id)
                  VALUES (:session_id, :point_idx, :detail, :photo_file_id)
`, map[string]any{
			"session_id":    id.String(),
			"point_idx":     i,
			"detail":        pt.Detail,
			"photo_file_id": pt.PhotoID,
		})
		if err != nil {
			return fmt.Errorf("session create point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session create: commit: %w", err)
	}
	logger.Debug(ctx, "session.store", "session.created",
		slog.String("session_id", id.String()),
		slog.Int("points", len(points)),
	)
	return nil
}

func (s *postgresStore) exists(ctx context.Context, id ID) (bool, error) {
	var found int
	err := s.db.GetContext(ctx, &found, `SELECT EXISTS(SELECT 1 FROM route_sessions WHERE id = $1)::int`, id.String())
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return found == 1, nil
}

func (s *postgresStore) PointCount(ctx context.Context, id ID) (int, error) {
	ok, err := s.exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrSessionNotFound
	}
	var count int
	err = s.db.GetContext(ctx, &count, `SELECT count(*) FROM route_points WHERE session_id = $1`, id.String())
	if err != nil {
		return 0, fmt.Errorf("session point count: %w", err)
	}
	return count, nil
}

func (s *postgresStore) PointAt(ctx context.Context, id ID, index int) (Point, error) {
	ok, err := s.exists(ctx, id)
	if err != nil {
		return Point{}, err
	}
	if !ok {
		return Point{}, ErrSessionNotFound
	}
	var pt Point
	err = s.db.GetContext(ctx, &pt, `
SELECT point_idx, detail, photo_file_id FROM route_points
 WHERE session_id = $1 AND point_idx = $2
`, id.String(), index)
	if errors.Is(err, sql.ErrNoRows) {
		return Point{}, ErrPointOutOfRange
	}
	if err != nil {
		return Point{}, fmt.Errorf("session point at: %w", err)
	}
	return pt, nil
}

func (s *postgresStore) Points(ctx context.Context, id ID) ([]Point, error) {
	ok, err := s.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	var points []Point
	err = s.db.SelectContext(ctx, &points, `
SELECT point_idx, detail, photo_file_id FROM route_points
 WHERE session_id = $1 ORDER BY point_idx
`, id.String())
	if err != nil {
		return nil, fmt.Errorf("session points: %w", err)
	}
	return points, nil
}

func (s *postgresStore) Delete(ctx context.Context, id ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM route_sessions WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *postgresStore) ListByUser(ctx context.Context, userID int64) ([]ID, error) {
	var raw []string
	err := s.db.SelectContext(ctx, &raw, `
SELECT id FROM route_sessions WHERE user_id = $1 ORDER BY created_at
`, userID)
	if err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	out := make([]ID, 0, len(raw))
	for _, r := range raw {
		id, err := ParseID(r)
		if err != nil {
			logger.Warn(ctx, "session.store", "session.id.malformed",
				slog.String("session_id", r),
				slog.String("err", err.Error()),
			)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
