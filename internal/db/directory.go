package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/helicityai/steward/internal/models"
)

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "db.get_user_by_id",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	query := `SELECT id, email, name, external_id, team, role, status, created_at, updated_at FROM users WHERE id = $1`

	var user models.User
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.ExternalID,
		&user.Team,
		&user.Role,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// DirectoryEntries returns one row per active user with the keys the identity
// resolver can look a user up by (SSO subject and email) plus the display name.
// Users without a stored name fall back to their email as the display name.
func (db *DB) DirectoryEntries(ctx context.Context) ([]models.DirectoryEntry, error) {
	ctx, span := tracer.Start(ctx, "db.directory_entries")
	defer span.End()

	query := `
		SELECT COALESCE(external_id, ''), email, COALESCE(name, email)
		FROM users
		WHERE status = 'active'
		ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query directory entries: %w", err)
	}
	defer rows.Close()

	var entries []models.DirectoryEntry
	for rows.Next() {
		var e models.DirectoryEntry
		if err := rows.Scan(&e.LinkedID, &e.Email, &e.Name); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan directory entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating directory entries: %w", err)
	}

	span.SetAttributes(attribute.Int("directory.count", len(entries)))
	return entries, nil
}

// CountActiveUsers returns the number of active users in the directory
func (db *DB) CountActiveUsers(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "db.count_active_users")
	defer span.End()

	query := `SELECT COUNT(*) FROM users WHERE status = 'active'`
	var count int
	err := db.conn.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	span.SetAttributes(attribute.Int("users.count", count))
	return count, nil
}

// UpdateUserStatus updates the status of a user (active/inactive)
func (db *DB) UpdateUserStatus(ctx context.Context, userID int64, status models.UserStatus) error {
	ctx, span := tracer.Start(ctx, "db.update_user_status",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("user.status", string(status)),
		))
	defer span.End()

	query := `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := db.conn.ExecContext(ctx, query, status, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
