package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kirychukyurii/hostdesk/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS hosts (
	ip                TEXT PRIMARY KEY,
	pos               INTEGER NOT NULL,
	vendor            TEXT NOT NULL DEFAULT '',
	region            TEXT NOT NULL DEFAULT '',
	cpu               INTEGER NOT NULL DEFAULT 0,
	memory            INTEGER NOT NULL DEFAULT 0,
	disk              INTEGER NOT NULL DEFAULT 0,
	bandwidth         INTEGER NOT NULL DEFAULT 0,
	os                TEXT NOT NULL DEFAULT '',
	online_date       TEXT NOT NULL DEFAULT '',
	owner             TEXT NOT NULL DEFAULT '',
	department        TEXT NOT NULL DEFAULT '',
	shared_department TEXT NOT NULL DEFAULT '',
	purpose           TEXT NOT NULL DEFAULT '',
	enable_status     INTEGER NOT NULL DEFAULT 1,
	management_status INTEGER NOT NULL DEFAULT 1,
	device_status     INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS inefficiencies (
	pos             INTEGER PRIMARY KEY,
	ip              TEXT NOT NULL,
	sample_date     TEXT NOT NULL,
	cpu_weekly      REAL, memory_weekly  REAL, disk_weekly  REAL,
	net_in_weekly   REAL, net_out_weekly REAL,
	cpu_monthly     REAL, memory_monthly REAL, disk_monthly REAL,
	net_in_monthly  REAL, net_out_monthly REAL
);

CREATE TABLE IF NOT EXISTS metrics (
	pos           INTEGER PRIMARY KEY,
	ip            TEXT NOT NULL,
	sample_date   TEXT NOT NULL,
	cpu           REAL, memory REAL, disk REAL,
	net_in        REAL, net_out REAL,
	process_count INTEGER,
	task_count    INTEGER,
	processes     TEXT NOT NULL DEFAULT '' -- JSON array
);

CREATE TABLE IF NOT EXISTS channel_summaries (
	id           TEXT PRIMARY KEY,
	pos          INTEGER NOT NULL,
	channel      TEXT NOT NULL,
	task_type    TEXT NOT NULL,
	sample_date  TEXT NOT NULL,
	total        INTEGER NOT NULL,
	success      INTEGER NOT NULL,
	failure      INTEGER NOT NULL,
	empty        INTEGER NOT NULL,
	deduplicated INTEGER NOT NULL,
	CHECK (total = success + failure + empty + deduplicated)
);

CREATE TABLE IF NOT EXISTS channel_details (
	pos          INTEGER PRIMARY KEY,
	parent_id    TEXT NOT NULL REFERENCES channel_summaries(id),
	business     TEXT NOT NULL,
	ip           TEXT NOT NULL,
	sample_date  TEXT NOT NULL,
	total        INTEGER NOT NULL,
	success      INTEGER NOT NULL,
	failure      INTEGER NOT NULL,
	empty        INTEGER NOT NULL,
	deduplicated INTEGER NOT NULL,
	CHECK (total = success + failure + empty + deduplicated)
);

CREATE TABLE IF NOT EXISTS change_records (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	sample_date TEXT NOT NULL,
	ip          TEXT NOT NULL,
	kind        INTEGER NOT NULL,
	operator    TEXT NOT NULL,
	before_val  TEXT NOT NULL,
	after_val   TEXT NOT NULL,
	remark      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_change_records_ip ON change_records(ip);
`

const hostColumns = `vendor, region, ip, cpu, memory, disk, bandwidth, os, online_date,
	owner, department, shared_department, purpose,
	enable_status, management_status, device_status`

// sqliteStore persists the inventory in a SQLite database file
type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger
	// SQLite has a single writer; the mutex keeps read-modify-write
	// transactions from failing with SQLITE_BUSY under contention.
	writeMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema
func NewSQLiteStore(path string, logger *slog.Logger) (Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("sqlite store opened", slog.String("path", path))

	return &sqliteStore{db: db, logger: logger}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHost(row rowScanner) (model.Host, error) {
	var h model.Host
	err := row.Scan(
		&h.Vendor, &h.Region, &h.IP, &h.CPU, &h.Memory, &h.Disk, &h.Bandwidth, &h.OS, &h.OnlineDate,
		&h.Owner, &h.Department, &h.SharedDepartment, &h.Purpose,
		&h.EnableStatus, &h.ManagementStatus, &h.DeviceStatus,
	)
	return h, err
}

func (s *sqliteStore) ListHosts(ctx context.Context) ([]model.Host, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+hostColumns+" FROM hosts ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	defer rows.Close()

	var hosts []model.Host
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

func (s *sqliteStore) GetHost(ctx context.Context, ip string) (model.Host, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+hostColumns+" FROM hosts WHERE ip = ?", ip)
	h, err := scanHost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Host{}, ErrHostNotFound
	}
	if err != nil {
		return model.Host{}, fmt.Errorf("failed to get host: %w", err)
	}
	return h, nil
}

func (s *sqliteStore) CreateHost(ctx context.Context, host model.Host) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM hosts WHERE ip = ?", host.IP).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check host: %w", err)
	}
	if exists > 0 {
		return ErrHostExists
	}

	var pos int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MIN(pos), 0) - 1 FROM hosts").Scan(&pos); err != nil {
		return fmt.Errorf("failed to compute host position: %w", err)
	}
	if err := insertHost(ctx, tx, host, pos); err != nil {
		return err
	}
	return tx.Commit()
}

func insertHost(ctx context.Context, tx *sql.Tx, h model.Host, pos int64) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO hosts (pos, "+hostColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		pos, h.Vendor, h.Region, h.IP, h.CPU, h.Memory, h.Disk, h.Bandwidth, h.OS, h.OnlineDate,
		h.Owner, h.Department, h.SharedDepartment, h.Purpose,
		h.EnableStatus, h.ManagementStatus, h.DeviceStatus)
	if err != nil {
		return fmt.Errorf("failed to insert host %s: %w", h.IP, err)
	}
	return nil
}

func (s *sqliteStore) MutateHost(ctx context.Context, ip string, fn MutateFunc) (model.Host, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Host{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	host, err := scanHost(tx.QueryRowContext(ctx, "SELECT "+hostColumns+" FROM hosts WHERE ip = ?", ip))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Host{}, ErrHostNotFound
	}
	if err != nil {
		return model.Host{}, fmt.Errorf("failed to get host: %w", err)
	}

	changes, err := fn(&host)
	if err != nil {
		return model.Host{}, err
	}
	host.IP = ip

	_, err = tx.ExecContext(ctx, `UPDATE hosts SET vendor=?, region=?, cpu=?, memory=?, disk=?, bandwidth=?, os=?, online_date=?,
		owner=?, department=?, shared_department=?, purpose=?, enable_status=?, management_status=?, device_status=?
		WHERE ip=?`,
		host.Vendor, host.Region, host.CPU, host.Memory, host.Disk, host.Bandwidth, host.OS, host.OnlineDate,
		host.Owner, host.Department, host.SharedDepartment, host.Purpose,
		host.EnableStatus, host.ManagementStatus, host.DeviceStatus, ip)
	if err != nil {
		return model.Host{}, fmt.Errorf("failed to update host %s: %w", ip, err)
	}

	if err := insertChanges(ctx, tx, changes); err != nil {
		return model.Host{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Host{}, fmt.Errorf("failed to commit host mutation: %w", err)
	}
	return host, nil
}

func insertChanges(ctx context.Context, tx *sql.Tx, changes []model.ChangeRecord) error {
	for _, c := range changes {
		_, err := tx.ExecContext(ctx, `INSERT INTO change_records (id, sample_date, ip, kind, operator, before_val, after_val, remark)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.SampleDate, c.IP, c.Kind, c.Operator, c.Before, c.After, c.Remark)
		if err != nil {
			return fmt.Errorf("failed to insert change record: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) ListInefficiencies(ctx context.Context) ([]model.InefficiencyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ip, sample_date,
		cpu_weekly, memory_weekly, disk_weekly, net_in_weekly, net_out_weekly,
		cpu_monthly, memory_monthly, disk_monthly, net_in_monthly, net_out_monthly
		FROM inefficiencies ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("failed to query inefficiencies: %w", err)
	}
	defer rows.Close()

	var out []model.InefficiencyRecord
	for rows.Next() {
		var r model.InefficiencyRecord
		if err := rows.Scan(&r.IP, &r.SampleDate,
			&r.CPUWeekly, &r.MemoryWeekly, &r.DiskWeekly, &r.NetInWeekly, &r.NetOutWeekly,
			&r.CPUMonthly, &r.MemoryMonthly, &r.DiskMonthly, &r.NetInMonthly, &r.NetOutMonthly); err != nil {
			return nil, fmt.Errorf("failed to scan inefficiency: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListMetrics(ctx context.Context) ([]model.MetricRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ip, sample_date, cpu, memory, disk, net_in, net_out,
		process_count, task_count, processes FROM metrics ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var out []model.MetricRecord
	for rows.Next() {
		var (
			r         model.MetricRecord
			processes string
		)
		if err := rows.Scan(&r.IP, &r.SampleDate, &r.CPU, &r.Memory, &r.Disk, &r.NetIn, &r.NetOut,
			&r.ProcessCount, &r.TaskCount, &processes); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if processes != "" {
			if err := json.Unmarshal([]byte(processes), &r.Processes); err != nil {
				return nil, fmt.Errorf("failed to decode processes of metric %s: %w", r.IP, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListChannelSummaries(ctx context.Context) ([]model.ChannelSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, channel, task_type, sample_date,
		total, success, failure, empty, deduplicated FROM channel_summaries ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel summaries: %w", err)
	}
	defer rows.Close()

	var out []model.ChannelSummary
	for rows.Next() {
		var r model.ChannelSummary
		if err := rows.Scan(&r.ID, &r.Channel, &r.TaskType, &r.SampleDate,
			&r.Total, &r.Success, &r.Failure, &r.Empty, &r.Deduplicated); err != nil {
			return nil, fmt.Errorf("failed to scan channel summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListChannelDetails(ctx context.Context) ([]model.ChannelDetail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT parent_id, business, ip, sample_date,
		total, success, failure, empty, deduplicated FROM channel_details ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel details: %w", err)
	}
	defer rows.Close()

	var out []model.ChannelDetail
	for rows.Next() {
		var r model.ChannelDetail
		if err := rows.Scan(&r.ParentID, &r.Business, &r.IP, &r.SampleDate,
			&r.Total, &r.Success, &r.Failure, &r.Empty, &r.Deduplicated); err != nil {
			return nil, fmt.Errorf("failed to scan channel detail: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListChangeRecords(ctx context.Context) ([]model.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, id, sample_date, ip, kind, operator, before_val, after_val, remark
		FROM change_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query change records: %w", err)
	}
	defer rows.Close()

	var out []model.ChangeRecord
	for rows.Next() {
		var r model.ChangeRecord
		if err := rows.Scan(&r.Seq, &r.ID, &r.SampleDate, &r.IP, &r.Kind, &r.Operator, &r.Before, &r.After, &r.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan change record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Load(ctx context.Context, ds *model.Dataset) error {
	if err := validateDataset(ds); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// details first: they reference summaries
	for _, table := range []string{"channel_details", "channel_summaries", "change_records", "metrics", "inefficiencies", "hosts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	// Restart change record sequence numbers like a fresh store
	if _, err := tx.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = 'change_records'"); err != nil {
		return fmt.Errorf("failed to reset change record sequence: %w", err)
	}

	for i, h := range ds.Hosts {
		if err := insertHost(ctx, tx, h, int64(i)); err != nil {
			return err
		}
	}

	for i, r := range ds.Inefficiencies {
		_, err := tx.ExecContext(ctx, `INSERT INTO inefficiencies (pos, ip, sample_date,
			cpu_weekly, memory_weekly, disk_weekly, net_in_weekly, net_out_weekly,
			cpu_monthly, memory_monthly, disk_monthly, net_in_monthly, net_out_monthly)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.IP, r.SampleDate, r.CPUWeekly, r.MemoryWeekly, r.DiskWeekly, r.NetInWeekly, r.NetOutWeekly,
			r.CPUMonthly, r.MemoryMonthly, r.DiskMonthly, r.NetInMonthly, r.NetOutMonthly)
		if err != nil {
			return fmt.Errorf("failed to insert inefficiency: %w", err)
		}
	}

	for i, r := range ds.Metrics {
		processes, err := json.Marshal(r.Processes)
		if err != nil {
			return fmt.Errorf("failed to encode processes: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO metrics (pos, ip, sample_date, cpu, memory, disk, net_in, net_out,
			process_count, task_count, processes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.IP, r.SampleDate, r.CPU, r.Memory, r.Disk, r.NetIn, r.NetOut,
			r.ProcessCount, r.TaskCount, string(processes))
		if err != nil {
			return fmt.Errorf("failed to insert metric: %w", err)
		}
	}

	for i, r := range ds.ChannelSummaries {
		_, err := tx.ExecContext(ctx, `INSERT INTO channel_summaries (id, pos, channel, task_type, sample_date,
			total, success, failure, empty, deduplicated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, r.Channel, r.TaskType, r.SampleDate, r.Total, r.Success, r.Failure, r.Empty, r.Deduplicated)
		if err != nil {
			return fmt.Errorf("failed to insert channel summary: %w", err)
		}
	}

	for i, r := range ds.ChannelDetails {
		_, err := tx.ExecContext(ctx, `INSERT INTO channel_details (pos, parent_id, business, ip, sample_date,
			total, success, failure, empty, deduplicated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.ParentID, r.Business, r.IP, r.SampleDate, r.Total, r.Success, r.Failure, r.Empty, r.Deduplicated)
		if err != nil {
			return fmt.Errorf("failed to insert channel detail: %w", err)
		}
	}

	if err := insertChanges(ctx, tx, ds.ChangeRecords); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	s.logger.Info("sqlite store loaded",
		slog.Int("hosts", len(ds.Hosts)),
		slog.Int("change_records", len(ds.ChangeRecords)),
	)
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
