package diarystore

import (
	"context"
	"database/sql"
	"time"

	"sigaedu-backend/lib/diarystore/db"
	"sigaedu-backend/lib/timezone"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store keeps timestamped snapshots of a user's diary so grade
// history can be charted over time. One snapshot per course per day,
// pushing twice in one day replaces that day's snapshots.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

type CourseSnapshot struct {
	Course       string
	FinalAverage float64
	Status       string
}

type PushRequest struct {
	Time    time.Time
	User    string
	Courses []CourseSnapshot
}

func (s Store) Push(ctx context.Context, req PushRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	startOfToday := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day(), 0, 0, 0, 0, timezone.Location).Unix()
	startOfTomorrow := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day()+1, 0, 0, 0, 0, timezone.Location).Unix()

	err = txqry.DeleteSnapshotsIn(ctx, db.DeleteSnapshotsInParams{
		After:  startOfToday,
		Before: startOfTomorrow,
		User:   req.User,
	})
	if err != nil {
		return err
	}

	for _, course := range req.Courses {
		err := txqry.CreateUserCourse(ctx, db.CreateUserCourseParams{
			User:   req.User,
			Course: course.Course,
		})
		if err != nil {
			return err
		}

		userCourseId, err := txqry.GetUserCourseId(ctx, db.GetUserCourseIdParams{
			User:   req.User,
			Course: course.Course,
		})
		if err != nil {
			return err
		}

		err = txqry.CreateSnapshot(ctx, db.CreateSnapshotParams{
			UserCourseID: userCourseId,
			Time:         req.Time.Unix(),
			FinalAverage: course.FinalAverage,
			Status:       course.Status,
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type Snapshot struct {
	Time         time.Time
	FinalAverage float64
	Status       string
}

type CourseSeries struct {
	Course    string
	Snapshots []Snapshot
}

func (s Store) Pull(ctx context.Context, user string) ([]CourseSeries, error) {
	rows, err := s.qry.GetSnapshots(ctx, user)
	if err != nil {
		return nil, err
	}

	var courses []CourseSeries
	for _, r := range rows {
		snapshot := Snapshot{
			Time:         time.Unix(r.Time, 0).In(timezone.Location),
			FinalAverage: r.FinalAverage,
			Status:       r.Status,
		}

		if len(courses) > 0 && courses[len(courses)-1].Course == r.Course {
			last := &courses[len(courses)-1]
			last.Snapshots = append(last.Snapshots, snapshot)
			continue
		}
		courses = append(courses, CourseSeries{
			Course:    r.Course,
			Snapshots: []Snapshot{snapshot},
		})
	}

	return courses, nil
}
