package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const deleteSnapshotsIn = `
DELETE FROM diary_snapshot
WHERE time >= ? AND time < ?
  AND user_course_id IN (SELECT id FROM user_course WHERE user = ?)
`

type DeleteSnapshotsInParams struct {
	After  int64
	Before int64
	User   string
}

func (q *Queries) DeleteSnapshotsIn(ctx context.Context, arg DeleteSnapshotsInParams) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshotsIn, arg.After, arg.Before, arg.User)
	return err
}

const createUserCourse = `
INSERT INTO user_course (user, course)
VALUES (?, ?)
ON CONFLICT (user, course) DO NOTHING
`

type CreateUserCourseParams struct {
	User   string
	Course string
}

func (q *Queries) CreateUserCourse(ctx context.Context, arg CreateUserCourseParams) error {
	_, err := q.db.ExecContext(ctx, createUserCourse, arg.User, arg.Course)
	return err
}

const getUserCourseId = `
SELECT id FROM user_course WHERE user = ? AND course = ?
`

type GetUserCourseIdParams struct {
	User   string
	Course string
}

func (q *Queries) GetUserCourseId(ctx context.Context, arg GetUserCourseIdParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, getUserCourseId, arg.User, arg.Course)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createSnapshot = `
INSERT INTO diary_snapshot (user_course_id, time, final_average, status)
VALUES (?, ?, ?, ?)
`

type CreateSnapshotParams struct {
	UserCourseID int64
	Time         int64
	FinalAverage float64
	Status       string
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, createSnapshot, arg.UserCourseID, arg.Time, arg.FinalAverage, arg.Status)
	return err
}

const getSnapshots = `
SELECT uc.course, ds.time, ds.final_average, ds.status
FROM diary_snapshot ds
JOIN user_course uc ON uc.id = ds.user_course_id
WHERE uc.user = ?
ORDER BY uc.course, ds.time
`

type GetSnapshotsRow struct {
	Course       string
	Time         int64
	FinalAverage float64
	Status       string
}

func (q *Queries) GetSnapshots(ctx context.Context, user string) ([]GetSnapshotsRow, error) {
	rows, err := q.db.QueryContext(ctx, getSnapshots, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetSnapshotsRow
	for rows.Next() {
		var r GetSnapshotsRow
		err := rows.Scan(&r.Course, &r.Time, &r.FinalAverage, &r.Status)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
