package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mfauto/mfauto/data"

	// tell sql to use sqlite
	_ "modernc.org/sqlite"
)

// DbFile is the name of the database file in the data directory
const DbFile = "mfauto.sqlite"

// dbVersion is the schema version recorded in the meta table
const dbVersion = 1

// Meta contains metadata about the database
type Meta struct {
	ID      int
	Version int
}

// DbSqlite represents a SQLite job catalogue
type DbSqlite struct {
	db   *sql.DB
	meta Meta
}

// NewSqliteDb opens or creates the catalogue in dataDir. If dbFile is
// set, it is used instead of dataDir/mfauto.sqlite.
func NewSqliteDb(dataDir string, dbFile string) (*DbSqlite, error) {
	ret := &DbSqlite{}

	if dbFile == "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("Error creating data dir: %v", err)
		}
		dbFile = filepath.Join(dataDir, DbFile)
	}

	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	ret.db = db

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS meta (id INT NOT NULL PRIMARY KEY,
				version INT)`)
	if err != nil {
		return nil, fmt.Errorf("Error creating meta table: %v", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS jobs (id TEXT NOT NULL PRIMARY KEY,
				type TEXT,
				study TEXT,
				output TEXT,
				state TEXT,
				error TEXT,
				host TEXT,
				created INT,
				started INT,
				finished INT)`)
	if err != nil {
		return nil, fmt.Errorf("Error creating jobs table: %v", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (id TEXT NOT NULL PRIMARY KEY,
				job_id TEXT,
				kind TEXT,
				name TEXT,
				path TEXT,
				size INT,
				seq INT)`)
	if err != nil {
		return nil, fmt.Errorf("Error creating artifacts table: %v", err)
	}

	metaRows, err := db.Query("SELECT id, version FROM meta")
	if err != nil {
		return nil, fmt.Errorf("Error quering meta: %v", err)
	}
	defer metaRows.Close()

	for metaRows.Next() {
		err = metaRows.Scan(&ret.meta.ID, &ret.meta.Version)
		if err != nil {
			return nil, fmt.Errorf("Error scanning meta row: %v", err)
		}
	}

	if ret.meta.Version == 0 {
		ret.meta.Version = dbVersion
		_, err = db.Exec(`INSERT INTO meta(id, version) VALUES(0, ?)`, dbVersion)
		if err != nil {
			return nil, fmt.Errorf("Error initializing meta: %v", err)
		}
	}

	if ret.meta.Version > dbVersion {
		return nil, fmt.Errorf("database version %v is newer than supported %v",
			ret.meta.Version, dbVersion)
	}

	return ret, nil
}

// Version returns the schema version of the database
func (sdb *DbSqlite) Version() int {
	return sdb.meta.Version
}

// JobInsert adds a job. A job ID and creation time are assigned if empty.
// The stored job is returned.
func (sdb *DbSqlite) JobInsert(job data.Job) (data.Job, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	if job.Created.IsZero() {
		job.Created = time.Now()
	}

	if job.State == "" {
		job.State = data.JobStateQueued
	}

	_, err := sdb.db.Exec(`INSERT INTO jobs(id, type, study, output, state, error, host,
				created, started, finished)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.Study, job.Output, job.State, job.Error, job.Host,
		toDb(job.Created), toDb(job.Started), toDb(job.Finished))
	if err != nil {
		return job, fmt.Errorf("Error inserting job: %v", err)
	}

	return job, nil
}

// JobUpdate writes the state, error, host and times of a job
func (sdb *DbSqlite) JobUpdate(job data.Job) error {
	res, err := sdb.db.Exec(`UPDATE jobs SET output = ?, state = ?, error = ?, host = ?,
				started = ?, finished = ? WHERE id = ?`,
		job.Output, job.State, job.Error, job.Host, toDb(job.Started), toDb(job.Finished), job.ID)
	if err != nil {
		return fmt.Errorf("Error updating job: %v", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("job %v: %w", job.ID, data.ErrNotFound)
	}

	return nil
}

const jobColumns = `id, type, study, output, state, error, host, created, started, finished`

func scanJob(s interface{ Scan(...any) error }) (data.Job, error) {
	var j data.Job
	var created, started, finished int64
	err := s.Scan(&j.ID, &j.Type, &j.Study, &j.Output, &j.State, &j.Error, &j.Host,
		&created, &started, &finished)
	j.Created = fromDb(created)
	j.Started = fromDb(started)
	j.Finished = fromDb(finished)
	return j, err
}

// Job returns a job by ID
func (sdb *DbSqlite) Job(id string) (data.Job, error) {
	row := sdb.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return j, fmt.Errorf("job %v: %w", id, data.ErrNotFound)
	}
	return j, err
}

// Jobs returns the latest jobs, newest first. limit <= 0 returns all jobs.
func (sdb *DbSqlite) Jobs(limit int) ([]data.Job, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := sdb.db.Query(`SELECT `+jobColumns+` FROM jobs
				ORDER BY created DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []data.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, j)
	}

	return ret, rows.Err()
}

// ArtifactInsert records a file produced by a job
func (sdb *DbSqlite) ArtifactInsert(a data.Artifact) error {
	_, err := sdb.db.Exec(`INSERT INTO artifacts(id, job_id, kind, name, path, size, seq)
				VALUES(?, ?, ?, ?, ?, ?,
				(SELECT COUNT(*) FROM artifacts WHERE job_id = ?))`,
		uuid.New().String(), a.JobID, a.Kind, a.Name, a.Path, a.Size, a.JobID)
	if err != nil {
		return fmt.Errorf("Error inserting artifact: %v", err)
	}
	return nil
}

// Artifacts returns the files of a job in the order they were recorded
func (sdb *DbSqlite) Artifacts(jobID string) ([]data.Artifact, error) {
	rows, err := sdb.db.Query(`SELECT job_id, kind, name, path, size FROM artifacts
				WHERE job_id = ? ORDER BY seq`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []data.Artifact
	for rows.Next() {
		var a data.Artifact
		if err := rows.Scan(&a.JobID, &a.Kind, &a.Name, &a.Path, &a.Size); err != nil {
			return nil, err
		}
		ret = append(ret, a)
	}

	return ret, rows.Err()
}

// Close the db
func (sdb *DbSqlite) Close() error {
	return sdb.db.Close()
}

func toDb(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromDb(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
